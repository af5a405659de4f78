package preview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"raster-export/internal/apperr"
	"raster-export/internal/colormap"
	"raster-export/internal/config"
	"raster-export/internal/raster"
	"raster-export/internal/render"
	"raster-export/internal/stats"
)

// ErrClosed is returned by operations on a finished session.
var ErrClosed = errors.New("preview session closed")

// Committer writes the final export for the approved parameters and
// returns the path it wrote.
type Committer interface {
	Commit(ctx context.Context, p render.Params) (string, error)
}

// Session is the controller behind one preview window.
type Session struct {
	grid      *raster.Grid
	summary   stats.Summary
	committer Committer
	sched     *Scheduler
	cb        Callbacks

	exportDPI int
	format    string

	mu        sync.Mutex
	params    render.Params
	choice    string
	last      *render.Result
	closed    bool
	confirmed bool
}

// NewSession opens a preview on grid seeded with the p5/p95 range and the
// palette chosen by choice (usually colormap.AutoName). The first frame is
// scheduled straight away.
func NewSession(grid *raster.Grid, summary stats.Summary, engine *render.Engine, cfg *config.Config,
	choice string, committer Committer, cb Callbacks) (*Session, error) {
	vmin, vmax := seedRange(summary)
	name, err := colormap.Resolve(choice, vmin, vmax)
	if err != nil {
		return nil, err
	}

	s := &Session{
		grid:      grid,
		summary:   summary,
		committer: committer,
		cb:        cb,
		exportDPI: cfg.ExportDPI,
		format:    cfg.Format,
		choice:    choice,
		params: render.Params{
			Colormap: name,
			VMin:     vmin,
			VMax:     vmax,
			DPI:      cfg.PreviewDPI,
			Format:   cfg.Format,
			Mode:     render.Preview,
		},
	}
	s.sched = NewScheduler(func(p render.Params) (*render.Result, error) {
		return engine.Render(grid, p)
	}, cfg.DebounceDuration(), Callbacks{OnFrame: s.onFrame, OnError: cb.OnError})

	s.sched.Update(s.params)
	return s, nil
}

// seedRange widens a degenerate p5/p95 so the first render is valid.
func seedRange(sum stats.Summary) (float64, float64) {
	lo, hi := sum.P5, sum.P95
	if lo < hi {
		return lo, hi
	}
	if sum.Min < sum.Max {
		return sum.Min, sum.Max
	}
	return lo - 0.5, hi + 0.5
}

func (s *Session) onFrame(res *render.Result) {
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	if s.cb.OnFrame != nil {
		s.cb.OnFrame(res)
	}
}

// Stats returns the summary of the previewed grid.
func (s *Session) Stats() stats.Summary { return s.summary }

// Params returns the current, possibly not yet rendered, parameters.
func (s *Session) Params() render.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Choice returns the palette selection as the user made it, which may be
// colormap.AutoName.
func (s *Session) Choice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choice
}

// Frame returns the most recently published frame, or nil.
func (s *Session) Frame() *render.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ApplyRange sets a new value range. Invalid ranges are rejected and the
// previous range kept.
func (s *Session) ApplyRange(vmin, vmax float64) error {
	if math.IsNaN(vmin) || math.IsNaN(vmax) || math.IsInf(vmin, 0) || math.IsInf(vmax, 0) {
		return fmt.Errorf("range %g..%g is not finite: %w", vmin, vmax, apperr.ErrValidation)
	}
	if vmin >= vmax {
		return fmt.Errorf("min %g must be below max %g: %w", vmin, vmax, apperr.ErrValidation)
	}
	return s.update(func(p *render.Params) error {
		p.VMin, p.VMax = vmin, vmax
		return nil
	})
}

// ResetRange restores the p5/p95 range the session opened with.
func (s *Session) ResetRange() error {
	vmin, vmax := seedRange(s.summary)
	return s.update(func(p *render.Params) error {
		p.VMin, p.VMax = vmin, vmax
		return nil
	})
}

// SetColormap switches palette. colormap.AutoName picks one for the
// current range.
func (s *Session) SetColormap(choice string) error {
	return s.update(func(p *render.Params) error {
		name, err := colormap.Resolve(choice, p.VMin, p.VMax)
		if err != nil {
			return err
		}
		p.Colormap = name
		s.choice = choice
		return nil
	})
}

func (s *Session) update(edit func(*render.Params) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	next := s.params
	if err := edit(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.params = next
	s.mu.Unlock()

	s.sched.Update(next)
	return nil
}

// Confirm exports with the parameters of the last rendered frame, or the
// current ones if nothing has rendered yet. On success the session closes.
func (s *Session) Confirm(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	p := s.params
	if s.last != nil {
		p = s.last.Params
	}
	p.Mode = render.Export
	p.DPI = s.exportDPI
	p.Format = s.format
	s.mu.Unlock()

	path, err := s.committer.Commit(ctx, p)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.closed = true
	s.confirmed = true
	s.mu.Unlock()
	s.sched.Close()
	return path, nil
}

// SetExport overrides the export resolution and format chosen in the
// preview window.
func (s *Session) SetExport(dpi int, format string) error {
	if dpi <= 0 {
		return fmt.Errorf("dpi %d: %w", dpi, apperr.ErrValidation)
	}
	if !config.ValidFormat(format) {
		return fmt.Errorf("format %q: %w", format, apperr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportDPI = dpi
	s.format = format
	s.params.Format = format
	return nil
}

// ExportSettings returns the resolution and format Confirm will use.
func (s *Session) ExportSettings() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportDPI, s.format
}

// Cancel closes the session without exporting.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.sched.Close()
}

// Confirmed reports whether Confirm completed.
func (s *Session) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// SchedulerState exposes the scheduler state for status displays.
func (s *Session) SchedulerState() State { return s.sched.State() }
