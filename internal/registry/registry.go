package registry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxIDLookupLength is the longest id list the bulk lookup procedure accepts.
const MaxIDLookupLength = 1000

type options struct {
	maxKeyLength     int
	batchWait        time.Duration
	groupConcurrency int
}

// Option tunes a Registry.
type Option func(*options)

// WithMaxKeyLength overrides MaxIDLookupLength.
func WithMaxKeyLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxKeyLength = n
		}
	}
}

// WithBatchWait sets how long a Resolver collects lookups before dispatching.
func WithBatchWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.batchWait = d
		}
	}
}

// WithGroupConcurrency caps how many bulk lookup groups run at once.
func WithGroupConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.groupConcurrency = n
		}
	}
}

// Registry is the long-lived entry point to the registry store. It is safe
// for concurrent use; per-request lookup state lives in the Resolvers it makes.
type Registry struct {
	store Store
	opts  options
	log   logrus.FieldLogger
}

// New returns a Registry over store.
func New(store Store, log logrus.FieldLogger, opts ...Option) *Registry {
	o := options{
		maxKeyLength:     MaxIDLookupLength,
		batchWait:        16 * time.Millisecond,
		groupConcurrency: 4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{store: store, opts: o, log: log}
}

// NewResolver starts a fresh unit of work.
func (r *Registry) NewResolver() *Resolver {
	return newResolver(r.store, r.opts, r.log)
}

// Search runs one paginated search.
func (r *Registry) Search(ctx context.Context, q SearchQuery) (*SearchResultPage, error) {
	set, err := r.store.SearchCertificates(ctx, q)
	if err != nil {
		return nil, &BackingStoreError{Op: "search", Err: err}
	}
	if set == nil {
		return nil, &BackingStoreError{Op: "search", Message: "recordset for search came back empty"}
	}

	page := &SearchResultPage{
		Results:  make([]Certificate, 0, len(set.Rows)),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	for _, row := range set.Rows {
		page.Results = append(page.Results, row.Certificate)
		page.ResultCount = row.ResultCount
	}
	page.PageCount = pageCount(page.ResultCount, page.PageSize)

	r.log.WithFields(logrus.Fields{
		"module":       "registry",
		"page":         page.Page,
		"result_count": page.ResultCount,
	}).Debug("search complete")

	return page, nil
}
