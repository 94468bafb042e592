package registry

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fakeStore records every id list it receives and serves certificates from a map.
type fakeStore struct {
	mu       sync.Mutex
	certs    map[int]Certificate
	calls    []string
	idCounts map[string]int
	failWhen func(idList string) error
	delay    func(idList string) time.Duration

	searchSet *SearchResultSet
	searchErr error
	lastQuery SearchQuery
}

func newFakeStore(ids ...int) *fakeStore {
	f := &fakeStore{certs: map[int]Certificate{}, idCounts: map[string]int{}}
	for _, id := range ids {
		f.certs[id] = Certificate{
			ID:           id,
			DecedentName: "Decedent " + strconv.Itoa(id),
			InOut:        StatusIn,
		}
	}
	return f
}

func (f *fakeStore) LookupCertificates(ctx context.Context, idList string) ([]Certificate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, idList)
	for _, id := range strings.Split(idList, ",") {
		f.idCounts[id]++
	}
	failWhen, delay := f.failWhen, f.delay
	f.mu.Unlock()

	if delay != nil {
		time.Sleep(delay(idList))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failWhen != nil {
		if err := failWhen(idList); err != nil {
			return nil, err
		}
	}

	var out []Certificate
	for _, id := range strings.Split(idList, ",") {
		n, _ := strconv.Atoi(id)
		if c, ok := f.certs[n]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) SearchCertificates(ctx context.Context, q SearchQuery) (*SearchResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return f.searchSet, f.searchErr
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
