package registry

import (
	"context"
	"strconv"
	"strings"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-certificate-orders/internal/chunk"
)

// LookupStatus tags the outcome of resolving one id.
type LookupStatus int

const (
	LookupFound LookupStatus = iota + 1
	LookupNotFound
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	case LookupFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lookup is the outcome of resolving one id. Certificate is set only when
// Status is LookupFound and Err only when it is LookupFailed.
type Lookup struct {
	ID          string
	Status      LookupStatus
	Certificate *Certificate
	Err         error
}

func newLookup(id string, cert *Certificate, err error) Lookup {
	switch {
	case err != nil:
		return Lookup{ID: id, Status: LookupFailed, Err: err}
	case cert == nil:
		return Lookup{ID: id, Status: LookupNotFound}
	default:
		return Lookup{ID: id, Status: LookupFound, Certificate: cert}
	}
}

// Resolver coalesces certificate lookups issued during one unit of work into
// chunked bulk calls. Build a new one per request; outcomes are cached for
// the Resolver's lifetime and never shared with another Resolver.
type Resolver struct {
	store  Store
	opts   options
	log    logrus.FieldLogger
	loader *dataloader.Loader[string, *Certificate]
}

func newResolver(store Store, opts options, log logrus.FieldLogger) *Resolver {
	r := &Resolver{store: store, opts: opts, log: log}
	r.loader = dataloader.NewBatchedLoader(r.fetch,
		dataloader.WithWait[string, *Certificate](opts.batchWait),
	)
	return r
}

// Resolve returns the outcome for id. Concurrent calls made before the batch
// window closes share one dispatch.
func (r *Resolver) Resolve(ctx context.Context, id string) Lookup {
	cert, err := r.loader.Load(ctx, id)()
	return newLookup(id, cert, err)
}

// ResolveMany resolves ids in one batch and returns outcomes in the same order.
func (r *Resolver) ResolveMany(ctx context.Context, ids []string) []Lookup {
	thunks := make([]dataloader.Thunk[*Certificate], len(ids))
	for i, id := range ids {
		thunks[i] = r.loader.Load(ctx, id)
	}
	out := make([]Lookup, len(ids))
	for i, thunk := range thunks {
		cert, err := thunk()
		out[i] = newLookup(ids[i], cert, err)
	}
	return out
}

type groupResponse struct {
	ids   []string
	certs []Certificate
	err   error
}

// fetch is the dataloader batch function. It must return one result per key,
// in key order.
func (r *Resolver) fetch(ctx context.Context, keys []string) []*dataloader.Result[*Certificate] {
	// In-flight bulk queries run to completion even if the request goes away.
	ctx = context.WithoutCancel(ctx)

	// Only numeric ids can match a certificate; the rest are not found without
	// costing a store call.
	byCanonical := map[string][]string{}
	var queryIDs []string
	for _, key := range keys {
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || n < 0 {
			continue
		}
		canon := strconv.Itoa(n)
		if _, seen := byCanonical[canon]; !seen {
			queryIDs = append(queryIDs, canon)
		}
		byCanonical[canon] = append(byCanonical[canon], key)
	}

	groups := chunk.Split(r.opts.maxKeyLength, queryIDs)
	responses := make([]groupResponse, len(groups))

	var g errgroup.Group
	g.SetLimit(r.opts.groupConcurrency)
	for i, idList := range groups {
		i, idList := i, idList
		g.Go(func() error {
			certs, err := r.store.LookupCertificates(ctx, idList)
			responses[i] = groupResponse{ids: strings.Split(idList, ","), certs: certs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make(map[string]*dataloader.Result[*Certificate], len(keys))
	for i, resp := range responses {
		if resp.err != nil {
			failure := &LookupPartialFailure{IDs: resp.ids, Err: resp.err}
			r.log.WithFields(logrus.Fields{
				"module":   "registry",
				"group":    i,
				"id_count": len(resp.ids),
			}).WithError(resp.err).Warn("certificate lookup group failed")
			for _, canon := range resp.ids {
				for _, key := range byCanonical[canon] {
					outcomes[key] = &dataloader.Result[*Certificate]{Error: failure}
				}
			}
			continue
		}

		requested := make(map[string]bool, len(resp.ids))
		for _, canon := range resp.ids {
			requested[canon] = true
		}
		for j := range resp.certs {
			cert := resp.certs[j]
			canon := strconv.Itoa(cert.ID)
			if !requested[canon] {
				continue
			}
			for _, key := range byCanonical[canon] {
				outcomes[key] = &dataloader.Result[*Certificate]{Data: &cert}
			}
		}
	}

	results := make([]*dataloader.Result[*Certificate], len(keys))
	for i, key := range keys {
		if res, ok := outcomes[key]; ok {
			results[i] = res
			continue
		}
		results[i] = &dataloader.Result[*Certificate]{}
	}
	return results
}
