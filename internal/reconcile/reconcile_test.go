package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/matsen/bibsync/internal/bibtex"
)

// fakeFetcher returns canned records by title.
type fakeFetcher struct {
	records map[string]string
	calls   int
}

func (f *fakeFetcher) FetchRecord(_ context.Context, title, _ string) (string, error) {
	f.calls++
	return f.records[title], nil
}

// fakeCache is an in-memory RecordCache.
type fakeCache struct {
	records map[string]string
	gets    int
	puts    int
}

func (c *fakeCache) Get(title string) (string, bool, error) {
	c.gets++
	record, ok := c.records[title]
	return record, ok, nil
}

func (c *fakeCache) Put(title, bibtex string) error {
	c.puts++
	c.records[title] = bibtex
	return nil
}

func newTestReconciler(client RecordFetcher, opts ...Option) *Reconciler {
	base := []Option{WithSleeper(func(time.Duration) {})}
	return New(client, append(base, opts...)...)
}

func entry(key, title string) bibtex.Entry {
	e := bibtex.Entry{Type: "article", Key: key}
	if title != "" {
		e.Set("title", title)
	}
	return e
}

func TestRun_ReplacesAndPreservesKey(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{
		"Attention Is All You Need": `@inproceedings{attention17,
  author = {Vaswani et al.},
  title = {Attention Is All You Need},
}`,
	}}
	r := newTestReconciler(client)

	out, failed, err := r.Run(context.Background(), []bibtex.Entry{
		entry("foo2020", "Attention Is All You Need"),
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Run() returned %d entries, want 1", len(out))
	}
	if out[0].Key != "foo2020" {
		t.Errorf("Key = %q, want the original foo2020", out[0].Key)
	}
	if got := out[0].Get("author"); got != "Vaswani et al." {
		t.Errorf("Get(author) = %q, want the canonical value", got)
	}
	if len(failed) != 0 {
		t.Errorf("failed = %v, want empty", failed)
	}
}

func TestRun_NoRecordKeepsOriginal(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{}}
	r := newTestReconciler(client)

	src := entry("that-key", "An Unfindable Paper")
	out, failed, err := r.Run(context.Background(), []bibtex.Entry{src})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(out) != 1 || !bibtex.Equal(out[0], src) {
		t.Errorf("output entry should be identical to the input, got %+v", out)
	}
	if len(failed) != 1 || failed[0] != "that-key" {
		t.Errorf("failed = %v, want [that-key]", failed)
	}
}

func TestRun_UnparseableRecordKeepsOriginal(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{
		"T": "this is not bibtex",
	}}
	r := newTestReconciler(client)

	src := entry("k", "T")
	out, failed, err := r.Run(context.Background(), []bibtex.Entry{src})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(out) != 1 || !bibtex.Equal(out[0], src) {
		t.Errorf("output entry should be identical to the input, got %+v", out)
	}
	if len(failed) != 1 || failed[0] != "k" {
		t.Errorf("failed = %v, want [k]", failed)
	}
}

func TestRun_SkipsEntriesMissingTitleOrKey(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{}}
	r := newTestReconciler(client)

	entries := []bibtex.Entry{
		entry("", "Has Title But No Key"),
		entry("hasKeyNoTitle", ""),
		entry("good", "A Real Paper"),
	}
	out, failed, err := r.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(out) != 1 || out[0].Key != "good" {
		t.Errorf("out = %+v, want only the valid entry", out)
	}
	if len(failed) != 1 || failed[0] != "good" {
		t.Errorf("failed = %v, want [good]", failed)
	}
	if client.calls != 1 {
		t.Errorf("client calls = %d, want 1 (skipped entries are never queried)", client.calls)
	}
}

func TestRun_OrderPreserved(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{
		"B": "@article{dblpB,\n  title = {B},\n}",
	}}
	r := newTestReconciler(client)

	entries := []bibtex.Entry{
		entry("a", "A"),
		entry("b", "B"),
		entry("c", "C"),
	}
	out, _, err := r.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Run() returned %d entries, want 3", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].Key != want {
			t.Errorf("out[%d].Key = %q, want %q", i, out[i].Key, want)
		}
	}
}

func TestRun_IdempotentWhenNothingResolves(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{}}
	r := newTestReconciler(client)

	entries := []bibtex.Entry{entry("a", "A"), entry("b", "B")}

	first, _, err := r.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	second, _, err := r.Run(context.Background(), first)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	for i := range entries {
		if !bibtex.Equal(entries[i], first[i]) || !bibtex.Equal(first[i], second[i]) {
			t.Errorf("entry %d changed across no-op runs", i)
		}
	}
}

func TestRun_OutputSharesNoStateWithSource(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{}}
	r := newTestReconciler(client)

	src := []bibtex.Entry{entry("k", "T")}
	out, _, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	out[0].Set("title", "mutated")
	if src[0].Get("title") != "T" {
		t.Error("mutating an output entry changed the source entry")
	}
}

func TestRun_PacesBetweenEntries(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{}}
	var sleeps int
	r := New(client,
		WithSleeper(func(time.Duration) { sleeps++ }),
		WithEntryDelay(time.Second),
	)

	entries := []bibtex.Entry{entry("a", "A"), entry("b", "B")}
	if _, _, err := r.Run(context.Background(), entries); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// One pause per processed entry, regardless of outcome.
	if sleeps != 2 {
		t.Errorf("sleeps = %d, want 2", sleeps)
	}
}

func TestRun_CacheHitSkipsClient(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{}}
	cache := &fakeCache{records: map[string]string{
		"T": "@article{cached,\n  title = {T},\n}",
	}}
	r := newTestReconciler(client, WithCache(cache))

	out, failed, err := r.Run(context.Background(), []bibtex.Entry{entry("k", "T")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("client calls = %d, want 0 on a cache hit", client.calls)
	}
	if len(out) != 1 || out[0].Key != "k" {
		t.Errorf("out = %+v, want cached record under original key", out)
	}
	if len(failed) != 0 {
		t.Errorf("failed = %v, want empty", failed)
	}
}

func TestRun_SuccessfulFetchPopulatesCache(t *testing.T) {
	client := &fakeFetcher{records: map[string]string{
		"T": "@article{x,\n  title = {T},\n}",
	}}
	cache := &fakeCache{records: map[string]string{}}
	r := newTestReconciler(client, WithCache(cache))

	if _, _, err := r.Run(context.Background(), []bibtex.Entry{entry("k", "T")}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}
	if _, ok := cache.records["T"]; !ok {
		t.Error("fetched record should be stored in the cache")
	}
}
