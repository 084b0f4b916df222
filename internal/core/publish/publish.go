package publish

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"boundary/internal/shared/util"
)

// Range is a 1-based position in a source file. Only the start is known for
// import statements.
type Range struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Rule     string `json:"rule"`
	Kind     string `json:"kind"`
}

// Sink receives per-file diagnostic sets. An empty set retracts previously
// published diagnostics for the file.
type Sink interface {
	Publish(ctx context.Context, file string, diags []Diagnostic) error
}

// JSONLinesSink writes one JSON object per publish, the way editors and CI
// wrappers consume diagnostics from a pipe.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

type fileDiagnostics struct {
	Path        string       `json:"path"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (s *JSONLinesSink) Publish(_ context.Context, file string, diags []Diagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if diags == nil {
		diags = []Diagnostic{}
	}
	return s.enc.Encode(fileDiagnostics{Path: file, Diagnostics: diags})
}

// MemorySink keeps the latest diagnostic set per file. Used in tests and by
// the watch TUI.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]Diagnostic
	log   []string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]Diagnostic)}
}

func (s *MemorySink) Publish(_ context.Context, file string, diags []Diagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, file)
	if len(diags) == 0 {
		delete(s.files, file)
		return nil
	}
	s.files[file] = append([]Diagnostic(nil), diags...)
	return nil
}

func (s *MemorySink) Get(file string) []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Diagnostic(nil), s.files[file]...)
}

func (s *MemorySink) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return util.SortedStringKeys(s.files)
}

// PublishCount returns how many publish calls the sink has seen, retractions
// included.
func (s *MemorySink) PublishCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

func (s *MemorySink) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.files {
		n += len(d)
	}
	return n
}

// LimitedSink rate limits downstream publishes so a watch loop cannot flood
// the consumer during large rechecks.
type LimitedSink struct {
	next    Sink
	limiter *util.Limiter
}

func NewLimitedSink(next Sink, perSecond float64, burst int) *LimitedSink {
	return &LimitedSink{next: next, limiter: util.NewLimiter(perSecond, burst)}
}

func (s *LimitedSink) Publish(ctx context.Context, file string, diags []Diagnostic) error {
	if err := s.limiter.Wait(ctx, 1); err != nil {
		return err
	}
	return s.next.Publish(ctx, file, diags)
}
