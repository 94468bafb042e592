package orders

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
	procAddOrder     = "Commerce_sp_AddOrder"
	procAddOrderItem = "Commerce_sp_AddOrderItem"
	procAddPayment   = "Commerce_sp_AddPayment"
)

type addOrderRow struct {
	OrderKey     int64   `gorm:"column:OrderKey"`
	ErrorMessage *string `gorm:"column:ErrorMessage"`
	Duplicate    *bool   `gorm:"column:IsDuplicate"`
}

// SQLStore writes orders through the registry's commerce stored procedures.
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
		tracer: otel.Tracer("registry-orders"),
	}
}

func (s *SQLStore) call(ctx context.Context, span string, proc string, dest any, args ...any) error {
	ctx, sp := s.tracer.Start(ctx, span, trace.WithAttributes(attribute.String("db.procedure", proc)))
	defer sp.End()

	release, err := s.gate.Acquire(ctx)
	if err != nil {
		sp.RecordError(err)
		return err
	}
	defer release()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	if err := s.db.WithContext(ctx).Raw("CALL "+proc+"("+placeholders+")", args...).Scan(dest).Error; err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("call %s: %w", proc, err)
	}
	return nil
}

func (s *SQLStore) AddOrder(ctx context.Context, h Header) (CreateResult, error) {
	var rows []addOrderRow
	err := s.call(ctx, "AddOrder", procAddOrder, &rows,
		h.ReferenceID, h.OrderType, h.OrderDate,
		h.ContactName, h.ContactEmail, h.ContactPhone,
		h.Shipping.Name, h.Shipping.Company, h.Shipping.Line1, h.Shipping.Line2,
		h.Shipping.City, h.Shipping.State, h.Shipping.ZIP,
		h.Billing.Name, h.Billing.Line1, h.Billing.Line2,
		h.Billing.City, h.Billing.State, h.Billing.ZIP,
		h.BillingLast4, h.ServiceFee, h.IdempotencyKey,
	)
	if err != nil {
		return CreateResult{}, err
	}
	if len(rows) == 0 {
		return CreateResult{}, fmt.Errorf("creating an order: %w", ErrNoRecordset)
	}

	row := rows[0]
	res := CreateResult{OrderKey: OrderKey(row.OrderKey)}
	if row.ErrorMessage != nil {
		res.ErrorMessage = *row.ErrorMessage
	}
	if row.Duplicate != nil {
		res.Duplicate = *row.Duplicate
	}
	return res, nil
}

func (s *SQLStore) AddOrderItem(ctx context.Context, item ItemRow) error {
	var rows []map[string]any
	err := s.call(ctx, "AddOrderItem", procAddOrderItem, &rows,
		int64(item.OrderKey), item.OrderType, item.CertificateID,
		item.CertificateName, item.Quantity, item.UnitCost,
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("likely no certificate ID %d in the database: %w", item.CertificateID, ErrNoRecordset)
	}
	return nil
}

func (s *SQLStore) AddPayment(ctx context.Context, p PaymentRow) error {
	var rows []map[string]any
	err := s.call(ctx, "AddPayment", procAddPayment, &rows,
		int64(p.OrderKey), p.PaymentDate, p.Description, p.TransactionID, p.Amount,
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("adding payment: %w", ErrNoRecordset)
	}
	return nil
}
