package pipeline

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"assertscan/pkg/progress"
	"assertscan/pkg/scan"
	"assertscan/pkg/sink"
	"assertscan/pkg/source"
)

type stubLocator struct {
	loc source.Location
	err error
}

func (s stubLocator) Locate(context.Context, string) (source.Location, error) {
	return s.loc, s.err
}

type stubAcquirer struct {
	dir string
	err error
}

func (s stubAcquirer) Acquire(context.Context, source.Location, string) (string, error) {
	return s.dir, s.err
}

type stubScanner struct {
	asserts []string
	files   int
	err     error
}

func (s stubScanner) Count(string) (int, error) { return s.files, nil }

func (s stubScanner) Scan(_ context.Context, _ string, onFile func()) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := 0; i < s.files; i++ {
		if onFile != nil {
			onFile()
		}
	}
	return s.asserts, nil
}

type memSink struct {
	mu   sync.Mutex
	recs []sink.Record
	err  error
}

func (s *memSink) Append(_ context.Context, rec sink.Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memSink) Close() error { return nil }

type countingTracker struct {
	steps    atomic.Int64
	adds     atomic.Int64
	advances atomic.Int64
	removes  atomic.Int64
}

func (t *countingTracker) Start(int) {}
func (t *countingTracker) Step()     { t.steps.Add(1) }
func (t *countingTracker) Add(string, int) progress.TaskID {
	return progress.TaskID(t.adds.Add(1))
}
func (t *countingTracker) Advance(progress.TaskID, int) { t.advances.Add(1) }
func (t *countingTracker) Remove(progress.TaskID)       { t.removes.Add(1) }
func (t *countingTracker) Finish()                      {}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestPipeline_Recorded(t *testing.T) {
	out := &memSink{}
	tracker := &countingTracker{}
	p := New(
		stubLocator{loc: source.Repository("https://github.com/psf/requests")},
		stubAcquirer{dir: "src"},
		stubScanner{asserts: []string{"assert a", "assert b"}, files: 3},
		out, tracker, quietLogger(),
	)

	got := p.Run(context.Background(), "requests", t.TempDir())
	if got != OutcomeRecorded {
		t.Fatalf("outcome = %v, want OutcomeRecorded", got)
	}
	if len(out.recs) != 1 {
		t.Fatalf("records = %d, want 1", len(out.recs))
	}
	if out.recs[0].Package != "requests" || len(out.recs[0].Assertions) != 2 {
		t.Errorf("record = %+v", out.recs[0])
	}
	if n := tracker.steps.Load(); n != 1 {
		t.Errorf("overall steps = %d, want 1", n)
	}
	if tracker.adds.Load() != 1 || tracker.removes.Load() != 1 {
		t.Errorf("task add/remove = %d/%d, want 1/1", tracker.adds.Load(), tracker.removes.Load())
	}
	if n := tracker.advances.Load(); n != 3 {
		t.Errorf("task advances = %d, want 3", n)
	}
}

func TestPipeline_NoLocation(t *testing.T) {
	out := &memSink{}
	tracker := &countingTracker{}
	p := New(stubLocator{loc: source.None()}, stubAcquirer{}, stubScanner{}, out, tracker, quietLogger())

	if got := p.Run(context.Background(), "ghost", t.TempDir()); got != OutcomeSkipped {
		t.Errorf("outcome = %v, want OutcomeSkipped", got)
	}
	if len(out.recs) != 0 {
		t.Errorf("unexpected records: %v", out.recs)
	}
	if n := tracker.steps.Load(); n != 1 {
		t.Errorf("overall steps = %d, want 1", n)
	}
}

func TestPipeline_StageFailures(t *testing.T) {
	tests := []struct {
		name     string
		locator  Locator
		acquirer Acquirer
		scanner  Scanner
		sinkErr  error
	}{
		{
			name:     "resolution",
			locator:  stubLocator{err: fmt.Errorf("registry unreachable")},
			acquirer: stubAcquirer{},
			scanner:  stubScanner{},
		},
		{
			name:     "acquisition",
			locator:  stubLocator{loc: source.Archive("https://example.com/p.tar.gz")},
			acquirer: stubAcquirer{err: fmt.Errorf("download refused")},
			scanner:  stubScanner{},
		},
		{
			name:     "scan",
			locator:  stubLocator{loc: source.Repository("https://github.com/a/b")},
			acquirer: stubAcquirer{dir: "src"},
			scanner:  stubScanner{err: fmt.Errorf("walk failed")},
		},
		{
			name:     "sink",
			locator:  stubLocator{loc: source.Repository("https://github.com/a/b")},
			acquirer: stubAcquirer{dir: "src"},
			scanner:  stubScanner{asserts: []string{"assert a"}},
			sinkErr:  fmt.Errorf("disk full"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &memSink{err: tt.sinkErr}
			tracker := &countingTracker{}
			p := New(tt.locator, tt.acquirer, tt.scanner, out, tracker, quietLogger())

			if got := p.Run(context.Background(), "pkg", t.TempDir()); got != OutcomeFailed {
				t.Errorf("outcome = %v, want OutcomeFailed", got)
			}
			if len(out.recs) != 0 {
				t.Errorf("unexpected records: %v", out.recs)
			}
			if n := tracker.steps.Load(); n != 1 {
				t.Errorf("overall steps = %d, want 1", n)
			}
		})
	}
}

func TestPipeline_ZeroAssertions(t *testing.T) {
	out := &memSink{}
	p := New(
		stubLocator{loc: source.Repository("https://github.com/a/b")},
		stubAcquirer{dir: "src"},
		stubScanner{asserts: []string{}, files: 1},
		out, nil, quietLogger(),
	)

	if got := p.Run(context.Background(), "clean", t.TempDir()); got != OutcomeRecorded {
		t.Fatalf("outcome = %v, want OutcomeRecorded", got)
	}
	if len(out.recs) != 1 || len(out.recs[0].Assertions) != 0 {
		t.Errorf("record = %+v, want empty assertion list", out.recs)
	}
}

// gateLocator tracks how many Locate calls run at the same time.
type gateLocator struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (g *gateLocator) Locate(context.Context, string) (source.Location, error) {
	g.mu.Lock()
	g.current++
	if g.current > g.peak {
		g.peak = g.current
	}
	g.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	g.mu.Lock()
	g.current--
	g.mu.Unlock()
	return source.None(), nil
}

func TestRunner_ConcurrencyCeiling(t *testing.T) {
	gate := &gateLocator{}
	p := New(gate, stubAcquirer{}, stubScanner{}, &memSink{}, nil, quietLogger())
	r := NewRunner(p, nil, quietLogger(), 2)

	packages := make([]string, 10)
	for i := range packages {
		packages[i] = fmt.Sprintf("pkg-%d", i)
	}

	summary, err := r.Run(context.Background(), packages)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Packages != 10 || summary.Skipped != 10 {
		t.Errorf("summary = %+v", summary)
	}
	if gate.peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", gate.peak)
	}
}

type routingLocator struct{}

func (routingLocator) Locate(_ context.Context, pkg string) (source.Location, error) {
	switch pkg {
	case "found":
		return source.Repository("https://github.com/a/b"), nil
	case "missing":
		return source.None(), nil
	default:
		return source.Location{}, fmt.Errorf("boom")
	}
}

func TestRunner_Summary(t *testing.T) {
	tracker := &countingTracker{}
	p := New(routingLocator{}, stubAcquirer{dir: "src"}, stubScanner{asserts: []string{"assert a"}}, &memSink{}, tracker, quietLogger())
	r := NewRunner(p, tracker, quietLogger(), 4)

	summary, err := r.Run(context.Background(), []string{"found", "missing", "broken"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Recorded != 1 || summary.Skipped != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if n := tracker.steps.Load(); n != 3 {
		t.Errorf("overall steps = %d, want 3", n)
	}
}

func sdistBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunner_EndToEnd(t *testing.T) {
	archive := sdistBytes(t, map[string]string{
		"pkgA-1.0/lib.py":    "def check(x):\n    assert x > 0\n",
		"pkgA-1.0/README.md": "not python\n",
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pkgA-1.0.tar.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive)
	}))
	defer server.Close()

	outPath := filepath.Join(t.TempDir(), "results.ndjson")
	out, err := sink.NewFileSink(outPath)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	p := New(
		stubLocator{loc: source.Archive(server.URL + "/pkgA-1.0.tar.gz")},
		source.NewAcquirer(),
		scan.NewScanner(quietLogger()),
		out, nil, quietLogger(),
	)
	r := NewRunner(p, nil, quietLogger(), 2)

	summary, err := r.Run(context.Background(), []string{"pkgA"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Recorded != 1 {
		t.Fatalf("summary = %+v, want 1 recorded", summary)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"pkgA":["assert x > 0"]}` + "\n"
	if string(data) != want {
		t.Errorf("output = %q, want %q", data, want)
	}
}

func TestLoadPackages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.json")
	content := `{"rows":[{"project":"requests"},{"project":""},{"project":"flask"}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadPackages(path)
	if err != nil {
		t.Fatalf("LoadPackages: %v", err)
	}
	if len(got) != 2 || got[0] != "requests" || got[1] != "flask" {
		t.Errorf("packages = %v", got)
	}
}

func TestLoadPackages_Errors(t *testing.T) {
	if _, err := LoadPackages(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPackages(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
