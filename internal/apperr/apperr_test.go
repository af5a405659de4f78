package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("open a.tif: %w", ErrInputRead), "Read Error"},
		{fmt.Errorf("reproject: %w", ErrGeometryMismatch), "Boundary Error"},
		{ErrEmptyClip, "No Data"},
		{fmt.Errorf("detect: %w", ErrNoRegionDetected), "No Data"},
		{ErrAllInvalid, "No Valid Cells"},
		{fmt.Errorf("encode: %w", ErrRender), "Render Error"},
		{ErrValidation, "Invalid Value"},
		{errors.New("boom"), "Export Failed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.err), "err=%v", tt.err)
	}
}
