package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AtlasLevelDerivesIDAndURLs(t *testing.T) {
	lvl := New("foo-17")

	require.NotNil(t, lvl.ID)
	assert.Equal(t, 17, *lvl.ID)
	assert.Equal(t, "foo-17", lvl.Filename)
	assert.Equal(t, "foo", lvl.DisplayName)
	assert.Equal(t, "https://atlas.dustforce.com/gi/maps/foo-17.png", lvl.ImageURL)
	assert.Equal(t, "dustforce://installPlay/17/foo", lvl.PlayURL)
	assert.Equal(t, "https://atlas.dustforce.com/17/foo", lvl.AtlasURL)
	assert.Equal(t, "https://dustkid.com/level/foo-17", lvl.DustkidURL)
}

func TestNew_MultiWordSlug(t *testing.T) {
	lvl := New("some-cool-level-1234")

	require.NotNil(t, lvl.ID)
	assert.Equal(t, 1234, *lvl.ID)
	assert.Equal(t, "some cool level", lvl.DisplayName)
	assert.Equal(t, "dustforce://installPlay/1234/some-cool-level", lvl.PlayURL)
	assert.Equal(t, "https://atlas.dustforce.com/1234/some-cool-level", lvl.AtlasURL)
}

func TestNew_StockMapHasNoIDOrAtlasPage(t *testing.T) {
	lvl := New("downhill")

	assert.Nil(t, lvl.ID)
	assert.Equal(t, "downhill", lvl.DisplayName)
	assert.Equal(t, "https://atlas.dustforce.com/gi/maps/downhill.png", lvl.ImageURL)
	assert.Equal(t, "dustforce://installPlay/0/downhill", lvl.PlayURL)
	assert.Empty(t, lvl.AtlasURL)
	assert.Equal(t, "https://dustkid.com/level/downhill", lvl.DustkidURL)
}

func TestNew_NonNumericSuffixIsStock(t *testing.T) {
	lvl := New("foo-bar")

	assert.Nil(t, lvl.ID)
	assert.Equal(t, "foo bar", lvl.DisplayName)
	assert.Equal(t, "dustforce://installPlay/0/foo-bar", lvl.PlayURL)
	assert.Empty(t, lvl.AtlasURL)
}
