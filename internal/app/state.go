// Package app holds the exporter's application state and event bus.
package app

import (
	"fmt"
	"strings"
	"sync"

	"raster-export/internal/apperr"
	"raster-export/internal/export"
	"raster-export/internal/raster"
	"raster-export/internal/vector"
)

// State tracks the chosen inputs and the export in progress.
type State struct {
	mu sync.RWMutex

	RasterPath string
	VectorPath string
	OutputPath string

	Busy       bool
	Job        *export.Job
	LastExport string

	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventInputsChanged EventType = iota
	EventBusyChanged
	EventJobPrepared
	EventExportComplete
	EventExportFailed
	EventExportCancelled
	EventAppearanceChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates an empty state.
func NewState() *State {
	return &State{
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetRaster selects the input raster; an empty path clears it.
func (s *State) SetRaster(path string) error {
	if path != "" && !raster.IsSupportedFormat(path) {
		return fmt.Errorf("unsupported raster %q (want %s): %w",
			path, strings.Join(raster.SupportedFormats(), ", "), apperr.ErrValidation)
	}
	s.mu.Lock()
	s.RasterPath = path
	s.mu.Unlock()
	s.Emit(EventInputsChanged, path)
	return nil
}

// SetVector selects the boundary shapefile; an empty path clears it so the
// region is detected automatically.
func (s *State) SetVector(path string) error {
	if path != "" && !vector.IsSupportedFormat(path) {
		return fmt.Errorf("unsupported boundary %q: %w", path, apperr.ErrValidation)
	}
	s.mu.Lock()
	s.VectorPath = path
	s.mu.Unlock()
	s.Emit(EventInputsChanged, path)
	return nil
}

// SetOutput sets where the export is written.
func (s *State) SetOutput(path string) {
	s.mu.Lock()
	s.OutputPath = path
	s.mu.Unlock()
	s.Emit(EventInputsChanged, path)
}

// CanExport reports whether a raster and output are chosen and no export
// is running.
func (s *State) CanExport() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RasterPath != "" && s.OutputPath != "" && !s.Busy
}

// Request builds an export request from the chosen paths.
func (s *State) Request() export.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req := export.Request{
		Raster: &raster.FileSource{Path: s.RasterPath},
		Output: s.OutputPath,
	}
	if s.VectorPath != "" {
		req.Vector = &vector.ShapefileSource{Path: s.VectorPath}
	}
	return req
}

func (s *State) setBusy(busy bool) {
	s.mu.Lock()
	s.Busy = busy
	s.mu.Unlock()
	s.Emit(EventBusyChanged, busy)
}

// Prepare runs extraction for the current inputs. Controls are marked busy
// until Complete, Fail or Cancel is called.
func (s *State) Prepare(p *export.Pipeline) (*export.Job, error) {
	if !s.CanExport() {
		return nil, fmt.Errorf("choose a raster and an output file first: %w", apperr.ErrValidation)
	}
	s.setBusy(true)

	job, err := p.Prepare(s.Request())
	if err != nil {
		s.Fail(err)
		return nil, err
	}

	s.mu.Lock()
	s.Job = job
	s.mu.Unlock()
	s.Emit(EventJobPrepared, job)
	return job, nil
}

// Complete records a written export.
func (s *State) Complete(path string) {
	s.mu.Lock()
	s.LastExport = path
	s.Job = nil
	s.mu.Unlock()
	s.setBusy(false)
	s.Emit(EventExportComplete, path)
}

// Fail reports an error and re-enables the controls.
func (s *State) Fail(err error) {
	s.mu.Lock()
	s.Job = nil
	s.mu.Unlock()
	s.setBusy(false)
	s.Emit(EventExportFailed, err)
}

// Cancel abandons the prepared export.
func (s *State) Cancel() {
	s.mu.Lock()
	s.Job = nil
	s.mu.Unlock()
	s.setBusy(false)
	s.Emit(EventExportCancelled, nil)
}
