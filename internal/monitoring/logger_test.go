package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("rendered job %d", 7)
	assert.Equal(t, "rendered job 7", got)

	SetLogger(nil)
	got = ""
	Logf("muted %d", 1)
	assert.Empty(t, got)
}
