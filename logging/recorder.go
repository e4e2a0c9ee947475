package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Entry is one recorded log line, retained for test assertions.
type Entry struct {
	Level string
	Msg   string
}

// Recorder is a Logger that retains every call in memory, injected by
// tests instead of the global singleton the teacher's original design
// used (spec §9 redesign note).
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg})
}

func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recorder) Verbo(msg string, _ ...zap.Field) { r.record("verbo", msg) }
func (r *Recorder) Debug(msg string, _ ...zap.Field) { r.record("debug", msg) }
func (r *Recorder) Info(msg string, _ ...zap.Field)  { r.record("info", msg) }
func (r *Recorder) Warn(msg string, _ ...zap.Field)  { r.record("warn", msg) }
func (r *Recorder) Error(msg string, _ ...zap.Field) { r.record("error", msg) }
func (r *Recorder) Fatal(msg string, _ ...zap.Field) { r.record("fatal", msg) }
func (r *Recorder) With(...zap.Field) Logger         { return r }
