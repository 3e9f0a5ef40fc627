// Package log carries the logger setup and the progress indicator used by
// multi-scenario CLI runs.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root logger. Console output is human-formatted; with
// json=true the raw structured stream is emitted instead.
func Setup(w io.Writer, level zerolog.Level, json bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Progress reports completion of a fixed number of steps, logging each
// advance with the elapsed time and an ETA estimate.
type Progress struct {
	mu      sync.Mutex
	log     zerolog.Logger
	name    string
	total   int
	current int
	start   time.Time
}

// NewProgress starts tracking a named operation with the given step count.
func NewProgress(log zerolog.Logger, name string, total int) *Progress {
	return &Progress{
		log:   log,
		name:  name,
		total: total,
		start: time.Now(),
	}
}

// Step records one completed step with its label.
func (p *Progress) Step(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	ev := p.log.Info().
		Str("operation", p.name).
		Str("step", label).
		Int("done", p.current).
		Int("total", p.total).
		Dur("elapsed", time.Since(p.start))
	if eta, ok := p.eta(); ok {
		ev = ev.Dur("eta", eta)
	}
	ev.Msg("progress")
}

// Finish logs the summary line for the operation.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log.Info().
		Str("operation", p.name).
		Int("done", p.current).
		Int("total", p.total).
		Dur("elapsed", time.Since(p.start)).
		Msg("complete")
}

// eta extrapolates the remaining time from the average step duration.
// Callers hold p.mu.
func (p *Progress) eta() (time.Duration, bool) {
	if p.current == 0 || p.current >= p.total {
		return 0, false
	}
	perStep := time.Since(p.start) / time.Duration(p.current)
	return perStep * time.Duration(p.total-p.current), true
}
