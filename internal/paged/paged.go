// Package paged implements a generic fetch-and-cache store: a reactive
// local read path merged with a bookmark-paginated remote fetch path.
// Exactly one fetch is in flight per key; concurrent observers of the same
// key attach to it instead of duplicating network work.
package paged

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mailpouch/mailpouch/internal/domain"
)

// Result is one emission of an observed stream. Err is set when a fetch
// failed; previously cached values stay valid.
type Result[V any] struct {
	Value V
	Err   error
}

// Store glues a local reader, a remote fetcher, a local writer and a
// bookmark-advance rule into one read-through/write-through component.
// All funcs must be set; Watch and Empty are optional.
type Store[K comparable, V any] struct {
	// KeyFunc maps a key to its de-duplication string.
	KeyFunc func(K) string
	// Read serves the local cache.
	Read func(ctx context.Context, key K) (V, error)
	// Fetch retrieves the page after bookmark and returns the advanced
	// bookmark derived from the page's last item.
	Fetch func(ctx context.Context, key K, bookmark domain.Bookmark) (V, domain.Bookmark, error)
	// Write commits a fetched page to the local cache.
	Write func(ctx context.Context, key K, page V) error
	// Empty reports whether a local read result warrants a fetch.
	Empty func(V) bool
	// Watch subscribes to local-cache invalidation for key.
	Watch func(key K) (<-chan struct{}, func())

	group singleflight.Group

	mu        sync.Mutex
	bookmarks map[K]domain.Bookmark
}

// Observe returns a restartable stream of local read results for key. On
// subscription the local value is emitted immediately; a fetch is
// triggered when refreshAtStart is set or the local cache is empty, and
// every subsequent cache write re-emits. The stream ends when ctx is done.
func (s *Store[K, V]) Observe(ctx context.Context, key K, refreshAtStart bool) <-chan Result[V] {
	out := make(chan Result[V], 1)

	go func() {
		defer close(out)

		var invalidated <-chan struct{}
		if s.Watch != nil {
			ch, stop := s.Watch(key)
			defer stop()
			invalidated = ch
		}

		v, err := s.Read(ctx, key)
		if !s.emit(ctx, out, Result[V]{Value: v, Err: err}) {
			return
		}

		if refreshAtStart || (err == nil && s.Empty != nil && s.Empty(v)) {
			if ferr := s.Refresh(ctx, key); ferr != nil && ctx.Err() == nil {
				if !s.emit(ctx, out, Result[V]{Err: ferr}) {
					return
				}
			}
			// The successful write path signals Watch; re-read here as
			// well so streams without a Watch func still see the page.
			if v, err = s.Read(ctx, key); !s.emit(ctx, out, Result[V]{Value: v, Err: err}) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-invalidated:
				v, err := s.Read(ctx, key)
				if !s.emit(ctx, out, Result[V]{Value: v, Err: err}) {
					return
				}
			}
		}
	}()

	return out
}

func (s *Store[K, V]) emit(ctx context.Context, out chan<- Result[V], r Result[V]) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// Refresh fetches the page after the current bookmark for key and writes
// it through. Concurrent refreshes of the same key share one fetch. A
// failed or cancelled fetch leaves both cache and bookmark untouched.
func (s *Store[K, V]) Refresh(ctx context.Context, key K) error {
	_, err, shared := s.group.Do(s.KeyFunc(key), func() (any, error) {
		bookmark := s.bookmark(key)
		page, next, err := s.Fetch(ctx, key, bookmark)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page: %w", err)
		}
		// A cancelled fetch must not commit partial writes.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.Write(ctx, key, page); err != nil {
			return nil, fmt.Errorf("failed to write page: %w", err)
		}
		s.setBookmark(key, next)
		return nil, nil
	})
	if shared {
		log.Printf("[fetch] attached to in-flight fetch for %s", s.KeyFunc(key))
	}
	return err
}

// LoadMore requests the next page for key using the current bookmark.
func (s *Store[K, V]) LoadMore(ctx context.Context, key K) error {
	return s.Refresh(ctx, key)
}

// Bookmark returns the current bookmark for key; the zero value means no
// page has been fetched this session.
func (s *Store[K, V]) Bookmark(key K) domain.Bookmark {
	return s.bookmark(key)
}

func (s *Store[K, V]) bookmark(key K) domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarks[key]
}

func (s *Store[K, V]) setBookmark(key K, b domain.Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bookmarks == nil {
		s.bookmarks = make(map[K]domain.Bookmark)
	}
	s.bookmarks[key] = b
}
