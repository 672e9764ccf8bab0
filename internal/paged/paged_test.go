package paged

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mailpouch/mailpouch/internal/domain"
)

type item struct {
	ID   string
	Time int64
}

// testStore caches pages in a map keyed by item id, mimicking the upsert
// semantics of the real conversation store.
type testStore struct {
	mu    sync.Mutex
	items map[string]item
}

func newPagedStore(st *testStore, fetch func(ctx context.Context, key string, b domain.Bookmark) ([]item, domain.Bookmark, error)) *Store[string, []item] {
	return &Store[string, []item]{
		KeyFunc: func(k string) string { return k },
		Read: func(ctx context.Context, key string) ([]item, error) {
			st.mu.Lock()
			defer st.mu.Unlock()
			out := make([]item, 0, len(st.items))
			for _, it := range st.items {
				out = append(out, it)
			}
			return out, nil
		},
		Fetch: fetch,
		Write: func(ctx context.Context, key string, page []item) error {
			st.mu.Lock()
			defer st.mu.Unlock()
			for _, it := range page {
				st.items[it.ID] = it
			}
			return nil
		},
		Empty: func(v []item) bool { return len(v) == 0 },
	}
}

func TestRefresh_AdvancesBookmark(t *testing.T) {
	st := &testStore{items: make(map[string]item)}
	pages := map[domain.Bookmark][]item{
		{}:                        {{ID: "c", Time: 300}, {ID: "b", Time: 200}},
		{Time: 200, ID: "b"}:      {{ID: "a", Time: 100}},
		{Time: 100, ID: "a"}:      nil,
	}
	var fetched []domain.Bookmark
	s := newPagedStore(st, func(ctx context.Context, key string, b domain.Bookmark) ([]item, domain.Bookmark, error) {
		fetched = append(fetched, b)
		page := pages[b]
		next := b
		if len(page) > 0 {
			last := page[len(page)-1]
			next = domain.Bookmark{Time: last.Time, ID: last.ID}
		}
		return page, next, nil
	})

	ctx := context.Background()
	if err := s.Refresh(ctx, "q"); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got := s.Bookmark("q"); got != (domain.Bookmark{Time: 200, ID: "b"}) {
		t.Errorf("bookmark after first page = %+v, want {200 b}", got)
	}

	if err := s.LoadMore(ctx, "q"); err != nil {
		t.Fatalf("LoadMore() error: %v", err)
	}
	want := []domain.Bookmark{{}, {Time: 200, ID: "b"}}
	if diff := cmp.Diff(want, fetched); diff != "" {
		t.Errorf("fetch cursors (-want +got):\n%s", diff)
	}

	// Merged view holds the union of both pages with no duplicates.
	v, err := s.Read(ctx, "q")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(v) != 3 {
		t.Errorf("cached items = %d, want 3", len(v))
	}
}

func TestRefresh_SingleFlight(t *testing.T) {
	st := &testStore{items: make(map[string]item)}
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	s := newPagedStore(st, func(ctx context.Context, key string, b domain.Bookmark) ([]item, domain.Bookmark, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []item{{ID: "a", Time: 100}}, domain.Bookmark{Time: 100, ID: "a"}, nil
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Refresh(ctx, "q"); err != nil {
			t.Errorf("first Refresh() error: %v", err)
		}
	}()

	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Refresh(ctx, "q"); err != nil {
			t.Errorf("second Refresh() error: %v", err)
		}
	}()

	// Give the second caller time to attach before releasing the fetch.
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestRefresh_FailureKeepsCacheAndBookmark(t *testing.T) {
	st := &testStore{items: map[string]item{"a": {ID: "a", Time: 100}}}
	fail := errors.New("network down")
	s := newPagedStore(st, func(ctx context.Context, key string, b domain.Bookmark) ([]item, domain.Bookmark, error) {
		return nil, domain.Bookmark{}, fail
	})
	s.setBookmark("q", domain.Bookmark{Time: 100, ID: "a"})

	err := s.Refresh(context.Background(), "q")
	if !errors.Is(err, fail) {
		t.Fatalf("Refresh() error = %v, want wrapped %v", err, fail)
	}
	if got := s.Bookmark("q"); got != (domain.Bookmark{Time: 100, ID: "a"}) {
		t.Errorf("bookmark changed on failed fetch: %+v", got)
	}
	v, _ := s.Read(context.Background(), "q")
	if len(v) != 1 {
		t.Errorf("cached items = %d, want 1 (cache must survive fetch failure)", len(v))
	}
}

func TestObserve_EmitsLocalThenFetches(t *testing.T) {
	st := &testStore{items: make(map[string]item)}
	s := newPagedStore(st, func(ctx context.Context, key string, b domain.Bookmark) ([]item, domain.Bookmark, error) {
		return []item{{ID: "a", Time: 100}}, domain.Bookmark{Time: 100, ID: "a"}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := s.Observe(ctx, "q", false)

	// First emission: the empty local cache.
	first := <-out
	if first.Err != nil {
		t.Fatalf("first emission error: %v", first.Err)
	}
	if len(first.Value) != 0 {
		t.Fatalf("first emission = %d items, want 0", len(first.Value))
	}

	// The empty cache triggers a fetch; the follow-up emission carries it.
	for r := range out {
		if r.Err != nil {
			t.Fatalf("emission error: %v", r.Err)
		}
		if len(r.Value) == 1 {
			return
		}
	}
	t.Fatal("stream ended without emitting the fetched page")
}

func TestObserve_SurfacesFetchError(t *testing.T) {
	st := &testStore{items: make(map[string]item)}
	fail := errors.New("boom")
	s := newPagedStore(st, func(ctx context.Context, key string, b domain.Bookmark) ([]item, domain.Bookmark, error) {
		return nil, domain.Bookmark{}, fail
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := s.Observe(ctx, "q", true)
	<-out // initial local emission
	for r := range out {
		if r.Err != nil {
			if !errors.Is(r.Err, fail) {
				t.Fatalf("error emission = %v, want wrapped %v", r.Err, fail)
			}
			return
		}
	}
	t.Fatal("stream ended without surfacing the fetch error")
}

func TestObserve_CancelledFetchCommitsNothing(t *testing.T) {
	st := &testStore{items: make(map[string]item)}
	ctx, cancel := context.WithCancel(context.Background())

	s := newPagedStore(st, func(ctx context.Context, key string, b domain.Bookmark) ([]item, domain.Bookmark, error) {
		cancel() // cancelled mid-fetch
		return []item{{ID: "a", Time: 100}}, domain.Bookmark{Time: 100, ID: "a"}, nil
	})

	err := s.Refresh(ctx, "q")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Refresh() error = %v, want context.Canceled", err)
	}
	if !s.Bookmark("q").Initial() {
		t.Error("bookmark advanced despite cancellation")
	}
	st.mu.Lock()
	n := len(st.items)
	st.mu.Unlock()
	if n != 0 {
		t.Errorf("cache has %d items after cancelled fetch, want 0", n)
	}
}
