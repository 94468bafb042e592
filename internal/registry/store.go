package registry

import "context"

// Store is the registry's stored-procedure surface.
type Store interface {
	// LookupCertificates fetches every certificate whose id appears in the
	// comma-joined idList. Unknown ids are simply absent from the result.
	LookupCertificates(ctx context.Context, idList string) ([]Certificate, error)

	// SearchCertificates runs the stored search query. A nil set with a nil
	// error means the store returned no result set.
	SearchCertificates(ctx context.Context, q SearchQuery) (*SearchResultSet, error)
}
