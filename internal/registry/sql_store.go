package registry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/imrishuroy/go-certificate-orders/internal/database"
)

const (
	procGetCertificates  = "Death_sp_GetCertificatesWeb"
	procFindCertificates = "Death_sp_FindCertificatesWeb"

	sortByDateOfDeath = "dateOfDeath"
)

// SQLStore calls the registry's stored procedures over a gated gorm pool.
type SQLStore struct {
	db     *gorm.DB
	gate   *database.Gate
	tracer trace.Tracer
}

// NewSQLStore returns a Store backed by db.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{
		db:     db.Gorm,
		gate:   db.Gate,
		tracer: otel.Tracer("registry"),
	}
}

func (s *SQLStore) LookupCertificates(ctx context.Context, idList string) ([]Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "GetCertificatesWeb",
		trace.WithAttributes(attribute.Int("registry.id_count", strings.Count(idList, ",")+1)))
	defer span.End()

	release, err := s.gate.Acquire(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	var certs []Certificate
	err = s.db.WithContext(ctx).
		Raw("CALL "+procGetCertificates+"(?)", idList).
		Scan(&certs).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("call %s: %w", procGetCertificates, err)
	}
	return certs, nil
}

func (s *SQLStore) SearchCertificates(ctx context.Context, q SearchQuery) (*SearchResultSet, error) {
	ctx, span := s.tracer.Start(ctx, "FindCertificatesWeb",
		trace.WithAttributes(attribute.Int("registry.page", q.Page), attribute.Int("registry.page_size", q.PageSize)))
	defer span.End()

	release, err := s.gate.Acquire(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	rows, err := s.db.WithContext(ctx).
		Raw("CALL "+procFindCertificates+"(?, ?, ?, ?, ?, ?)",
			q.Query, q.Page, q.PageSize, sortByDateOfDeath, q.StartYear, q.EndYear).
		Rows()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("call %s: %w", procFindCertificates, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read %s columns: %w", procFindCertificates, err)
	}
	if len(cols) == 0 {
		return nil, nil
	}

	set := &SearchResultSet{Rows: []SearchRow{}}
	for rows.Next() {
		var row SearchRow
		if err := s.db.ScanRows(rows, &row); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", procFindCertificates, err)
		}
		set.Rows = append(set.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", procFindCertificates, err)
	}
	return set, nil
}
