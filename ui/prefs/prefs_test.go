package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)

	p := LoadFrom(path)
	assert.Equal(t, 300, p.Int(KeyExportDPI, 300))
	assert.Equal(t, "png", p.String(KeyFormat, "png"))

	p.SetInt(KeyExportDPI, 400)
	p.SetString(KeyAppearance, "light")
	require.NoError(t, p.Save())

	q := LoadFrom(path)
	assert.Equal(t, 400, q.Int(KeyExportDPI, 300))
	assert.Equal(t, "light", q.String(KeyAppearance, "dark"))
}

func TestCorruptFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	p := LoadFrom(path)
	assert.Equal(t, "", p.String(KeyLastDir, ""))
	p.SetString(KeyLastDir, "/data")
	require.NoError(t, p.Save())
	assert.Equal(t, "/data", LoadFrom(path).String(KeyLastDir, ""))
}

func TestWrongTypeFallsBack(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), prefsFile))
	p.SetString(KeyExportDPI, "high")
	assert.Equal(t, 250, p.Int(KeyExportDPI, 250))
}
