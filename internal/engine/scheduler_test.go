package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/leakspectre/internal/s3"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

type fakeLister struct {
	refs []scanner.ObjectRef
	pos  int
}

func (l *fakeLister) Next(ctx context.Context) (scanner.ObjectRef, bool, error) {
	if err := ctx.Err(); err != nil {
		return scanner.ObjectRef{}, false, err
	}
	if l.pos >= len(l.refs) {
		return scanner.ObjectRef{}, false, nil
	}
	ref := l.refs[l.pos]
	l.pos++
	return ref, true, nil
}

// fakeFetcher serves objects from memory. Keys listed in transient fail that
// many times before succeeding (counted as retries, matching the real
// fetcher's internal retry contract); keys in broken always fail.
type fakeFetcher struct {
	mu        sync.Mutex
	objects   map[string]string
	transient map[string]int
	broken    map[string]bool
	blocking  bool // block on ctx for unknown keys instead of failing

	fetched sync.Map // key -> true, for fetch-never-invoked assertions
	retries atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref scanner.ObjectRef) (s3.FetchResult, error) {
	f.fetched.Store(ref.Key, true)

	f.mu.Lock()
	for f.transient[ref.Key] > 0 {
		f.transient[ref.Key]--
		f.retries.Add(1)
	}
	broken := f.broken[ref.Key]
	content, known := f.objects[ref.Key]
	f.mu.Unlock()

	if broken {
		return s3.FetchResult{}, errors.New("RequestTimeout: retries exhausted")
	}
	if !known {
		if f.blocking {
			<-ctx.Done()
			return s3.FetchResult{}, ctx.Err()
		}
		return s3.FetchResult{}, errors.New("NoSuchKey: missing")
	}
	if err := ctx.Err(); err != nil {
		return s3.FetchResult{}, err
	}
	return s3.FetchResult{Ref: ref, Data: []byte(content)}, nil
}

func (f *fakeFetcher) Retries() int64 {
	return f.retries.Load()
}

func (f *fakeFetcher) wasFetched(key string) bool {
	_, ok := f.fetched.Load(key)
	return ok
}

func refsFor(keys ...string) []scanner.ObjectRef {
	refs := make([]scanner.ObjectRef, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, scanner.ObjectRef{Key: k, Size: 64})
	}
	return refs
}

// 32 distinct characters: entropy 5.0, above the 4.5 default threshold.
const testSecret = "Xk29LqP8vR3mN7wZaB5tYcJdFgHsUeI6"

func TestSchedulerAccountsForEveryObject(t *testing.T) {
	const n = 40
	for _, workers := range []int{1, 2, 7, 64} {
		var keys []string
		objects := make(map[string]string)
		broken := map[string]bool{}
		for i := 0; i < n; i++ {
			key := fmt.Sprintf("obj-%03d.txt", i)
			switch i % 4 {
			case 0:
				key = fmt.Sprintf("img-%03d.png", i) // blacklisted
			case 1:
				broken[key] = true
			default:
				objects[key] = "plain text content\n"
			}
			keys = append(keys, key)
		}

		lister := &fakeLister{refs: refsFor(keys...)}
		fetcher := &fakeFetcher{objects: objects, broken: broken}
		sched := New(Config{Workers: workers}, lister, fetcher)

		result, err := sched.Run(context.Background())
		if err != nil {
			t.Fatalf("workers=%d: Run failed: %v", workers, err)
		}

		s := result.Summary
		if s.Objects != n {
			t.Errorf("workers=%d: objects = %d, want %d", workers, s.Objects, n)
		}
		if s.Scanned+s.Skipped+s.Failed != n {
			t.Errorf("workers=%d: scanned %d + skipped %d + failed %d != %d",
				workers, s.Scanned, s.Skipped, s.Failed, n)
		}
		if s.Skipped != 10 {
			t.Errorf("workers=%d: skipped = %d, want 10", workers, s.Skipped)
		}
		if s.Failed != 10 {
			t.Errorf("workers=%d: failed = %d, want 10", workers, s.Failed)
		}
	}
}

func TestSchedulerBlacklistedNeverFetched(t *testing.T) {
	lister := &fakeLister{refs: refsFor("photo.png", "notes.txt")}
	fetcher := &fakeFetcher{objects: map[string]string{
		// High-entropy binary-ish content behind a blacklisted key.
		"photo.png": testSecret + testSecret,
		"notes.txt": "hello world\n",
	}}
	sched := New(Config{Workers: 2}, lister, fetcher)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetcher.wasFetched("photo.png") {
		t.Error("blacklisted object must not be fetched")
	}
	if !fetcher.wasFetched("notes.txt") {
		t.Error("regular object should be fetched")
	}
	if len(result.Findings) != 0 {
		t.Errorf("got findings %v, want none", result.Findings)
	}
	if result.Summary.Skipped != 1 || result.Summary.Scanned != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestSchedulerEndToEndFinding(t *testing.T) {
	lister := &fakeLister{refs: refsFor("config.env", "readme.md")}
	fetcher := &fakeFetcher{objects: map[string]string{
		"config.env": "API_KEY=" + testSecret + "\nhello world\n",
		"readme.md":  "just some ordinary prose\n",
	}}
	sched := New(Config{Workers: 2}, lister, fetcher)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Findings) != 1 {
		t.Fatalf("got %d findings %v, want 1", len(result.Findings), result.Findings)
	}
	f := result.Findings[0]
	if f.Key != "config.env" || f.Line != 1 || f.Token != testSecret {
		t.Errorf("finding = %+v", f)
	}
	if f.Reason != scanner.ReasonEntropy {
		t.Errorf("reason = %q", f.Reason)
	}
}

func TestSchedulerIdempotent(t *testing.T) {
	objects := map[string]string{
		"z.env":  "TOKEN=" + testSecret + "\n",
		"a.env":  "SECRET=\"" + testSecret + "\"\n",
		"m.yaml": "password: " + testSecret + "\nname: demo\n",
	}

	run := func() *Result {
		lister := &fakeLister{refs: refsFor("z.env", "a.env", "m.yaml")}
		fetcher := &fakeFetcher{objects: objects}
		result, err := New(Config{Workers: 3}, lister, fetcher).Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	first := run()
	second := run()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("two scans over unchanged data differ:\n%+v\n%+v", first, second)
	}
	if len(first.Findings) != 3 {
		t.Fatalf("got %d findings, want 3", len(first.Findings))
	}
	// Sorted by object key regardless of completion order.
	wantKeys := []string{"a.env", "m.yaml", "z.env"}
	for i, want := range wantKeys {
		if first.Findings[i].Key != want {
			t.Errorf("finding %d key = %q, want %q", i, first.Findings[i].Key, want)
		}
	}
}

func TestSchedulerTransientRetryMatchesCleanRun(t *testing.T) {
	objects := map[string]string{"config.env": "API_KEY=" + testSecret + "\n"}

	clean := &fakeFetcher{objects: objects}
	flaky := &fakeFetcher{objects: objects, transient: map[string]int{"config.env": 1}}

	cleanResult, err := New(Config{Workers: 1}, &fakeLister{refs: refsFor("config.env")}, clean).Run(context.Background())
	if err != nil {
		t.Fatalf("clean run failed: %v", err)
	}
	flakyResult, err := New(Config{Workers: 1}, &fakeLister{refs: refsFor("config.env")}, flaky).Run(context.Background())
	if err != nil {
		t.Fatalf("flaky run failed: %v", err)
	}

	if !reflect.DeepEqual(cleanResult.Findings, flakyResult.Findings) {
		t.Errorf("findings differ:\nclean: %+v\nflaky: %+v", cleanResult.Findings, flakyResult.Findings)
	}
	if cleanResult.Summary.Retries != 0 {
		t.Errorf("clean retries = %d, want 0", cleanResult.Summary.Retries)
	}
	if flakyResult.Summary.Retries != 1 {
		t.Errorf("flaky retries = %d, want 1", flakyResult.Summary.Retries)
	}
}

func TestSchedulerCancellation(t *testing.T) {
	const n = 200
	var keys []string
	for i := 0; i < n; i++ {
		keys = append(keys, fmt.Sprintf("hang-%03d.txt", i))
	}
	keys[0] = "first.env"

	fetcher := &fakeFetcher{
		objects:  map[string]string{"first.env": "KEY=" + testSecret + "\n"},
		blocking: true, // every other key blocks until cancellation
	}
	lister := &fakeLister{refs: refsFor(keys...)}
	sched := New(Config{Workers: 2}, lister, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan *Result, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := sched.Run(ctx)
		resultCh <- result
		errCh <- err
	}()

	cancel()
	result := <-resultCh
	err := <-errCh

	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if result == nil {
		t.Fatal("aborted scan must still return the partial result")
	}
	// Backpressure: at most workers + buffer tasks were ever in flight, the
	// rest of the bucket was never dispatched.
	if result.Summary.Objects >= n {
		t.Errorf("objects = %d, want fewer than %d after early cancel", result.Summary.Objects, n)
	}
}
