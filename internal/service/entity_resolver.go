package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/models"
)

// MaxResolverBatchSize is the largest id set the backend accepts per lookup.
const MaxResolverBatchSize = 10

// ChunkFailure describes one lookup that failed during resolution.
type ChunkFailure struct {
	IDs []uuid.UUID
	Err error
}

// PartialResolutionError is returned together with the records of the chunks
// that did resolve.
type PartialResolutionError struct {
	Collection string
	Failed     []ChunkFailure
}

func (e *PartialResolutionError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%d ids: %v", len(f.IDs), f.Err))
	}
	return fmt.Sprintf("partial resolution of %s: %d chunk(s) failed (%s)",
		e.Collection, len(e.Failed), strings.Join(parts, "; "))
}

func (e *PartialResolutionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// FailedIDs lists every id whose chunk failed.
func (e *PartialResolutionError) FailedIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, f := range e.Failed {
		ids = append(ids, f.IDs...)
	}
	return ids
}

// EntityResolver loads related entities by id in fixed-size chunks.
type EntityResolver struct {
	fetcher     domainrepo.EntityFetcher
	batchSize   int
	concurrency int
}

// NewEntityResolver clamps batchSize to [1, MaxResolverBatchSize] and
// concurrency to at least 1.
func NewEntityResolver(fetcher domainrepo.EntityFetcher, batchSize, concurrency int) *EntityResolver {
	if batchSize <= 0 || batchSize > MaxResolverBatchSize {
		batchSize = MaxResolverBatchSize
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &EntityResolver{fetcher: fetcher, batchSize: batchSize, concurrency: concurrency}
}

// Resolve returns the records of collection matching ids. Duplicate and nil
// ids are dropped; an empty id set returns without calling the backend.
// When some chunks fail, the records of the others are returned along with
// a *PartialResolutionError.
func (r *EntityResolver) Resolve(ctx context.Context, collection string, ids []uuid.UUID) ([]models.RelatedEntity, error) {
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return []models.RelatedEntity{}, nil
	}

	chunks := chunkIDs(unique, r.batchSize)
	results := make([][]models.RelatedEntity, len(chunks))
	failures := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			records, err := r.fetcher.FetchByIDs(gctx, collection, chunk)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[uuid.UUID]struct{}, len(unique))
	merged := make([]models.RelatedEntity, 0, len(unique))
	var partial *PartialResolutionError
	for i := range chunks {
		if failures[i] != nil {
			if partial == nil {
				partial = &PartialResolutionError{Collection: collection}
			}
			partial.Failed = append(partial.Failed, ChunkFailure{IDs: chunks[i], Err: failures[i]})
			continue
		}
		for _, rec := range results[i] {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}

	if partial != nil {
		return merged, partial
	}
	return merged, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	chunks := make([][]uuid.UUID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
