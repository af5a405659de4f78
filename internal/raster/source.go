package raster

// Band is the result of reading a single raster band. Grid holds the raw
// samples; nodata has not been masked yet.
type Band struct {
	Grid      *Grid
	NoData    float64
	HasNoData bool
}

// Source reads one band from some raster store.
type Source interface {
	ReadBand() (*Band, error)
}

// MemSource serves a band held in memory. Each read returns a fresh copy so
// callers may mask it in place.
type MemSource struct {
	Band Band
}

// ReadBand implements Source.
func (s *MemSource) ReadBand() (*Band, error) {
	b := s.Band
	b.Grid = s.Band.Grid.Clone()
	return &b, nil
}
