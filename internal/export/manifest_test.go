package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestSaveLoad(t *testing.T) {
	m := NewManifest()
	m.Colormap = "YlGn"
	m.VMin, m.VMax = -0.1, 0.9
	m.Format = "png"
	m.DPI = 300

	path := filepath.Join(t.TempDir(), "out.png.json")
	require.NoError(t, m.Save(path))

	got, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "YlGn", got.Colormap)
	assert.Equal(t, -0.1, got.VMin)
	assert.True(t, m.Created.Equal(got.Created))
	assert.Nil(t, got.Region)
}

func TestNewManifestIDsDiffer(t *testing.T) {
	assert.NotEqual(t, NewManifest().ID, NewManifest().ID)
	assert.Equal(t, "a/b.png.json", ManifestPath("a/b.png"))
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
