package marker

import (
	"strings"
	"testing"

	"go-attack-planner/internal/direction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorTable(t *testing.T) {
	tests := []struct {
		dir  direction.Direction
		want Anchor
	}{
		{direction.Top, Anchor{28, 50, 0}},
		{direction.Right, Anchor{50, 72, -90}},
		{direction.Bottom, Anchor{72, 50, 180}},
		{direction.Left, Anchor{50, 28, 90}},
		{direction.TopRight, Anchor{35, 65, -45}},
		{direction.BottomRight, Anchor{65, 65, -135}},
		{direction.BottomLeft, Anchor{65, 35, 135}},
		{direction.TopLeft, Anchor{35, 35, 45}},
	}

	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			got, ok := AnchorFor(tt.dir)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := AnchorFor(direction.Direction("center"))
	assert.False(t, ok)
}

func TestPlace_OneMarkerPerDirection(t *testing.T) {
	dirs := direction.NewSet(direction.Bottom, direction.Top, direction.Bottom)

	markers := Place(dirs)
	require.Len(t, markers, 2)
	assert.Equal(t, direction.Top, markers[0].Direction)
	assert.Equal(t, direction.Bottom, markers[1].Direction)
	assert.Equal(t, 72.0, markers[1].TopPercent)
}

func TestPlace_Empty(t *testing.T) {
	markers := Place(direction.NewSet())
	assert.NotNil(t, markers)
	assert.Empty(t, markers)
}

func TestMarker_Style(t *testing.T) {
	m := Place(direction.NewSet(direction.BottomRight))[0]
	assert.Equal(t,
		"position:absolute;top:65%;left:65%;transform:translate(-50%, -50%) rotate(-135deg);pointer-events:none;z-index:20",
		m.Style())
}

func TestRenderOverlay(t *testing.T) {
	markers := Place(direction.NewSet(direction.Right, direction.TopLeft))

	html, err := RenderOverlay("Phase 1: <Funnel>", markers)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, `<div class="marker-layer"`))
	assert.Contains(t, html, "pointer-events:none")
	assert.Equal(t, 2, strings.Count(html, `class="marker marker-`))
	assert.Contains(t, html, `data-direction="right"`)
	assert.Contains(t, html, `data-direction="top-left"`)
	assert.Contains(t, html, "rotate(-90deg)")
	assert.Contains(t, html, "<svg")
	assert.NotContains(t, html, "<Funnel>", "phase name must be escaped")
	assert.NotContains(t, html, "ZgotmplZ")
}

func TestRenderOverlay_NoMarkers(t *testing.T) {
	html, err := RenderOverlay("Phase 2", nil)
	require.NoError(t, err)
	assert.NotContains(t, html, `class="marker marker-`)
}
