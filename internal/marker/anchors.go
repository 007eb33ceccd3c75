// Package marker places arrow markers over the base image for a set of
// directions.
package marker

import "go-attack-planner/internal/direction"

const (
	// EdgeInset is how far, in percent, cardinal markers sit from the image edge.
	EdgeInset = 28.0
	// DiagonalInset is the same distance for diagonal markers.
	DiagonalInset = 35.0
)

// Anchor is a fixed relative position and rotation for one direction.
type Anchor struct {
	TopPercent  float64 `json:"top_percent"`
	LeftPercent float64 `json:"left_percent"`
	RotationDeg float64 `json:"rotation_deg"`
}

var anchors = map[direction.Direction]Anchor{
	direction.Top:         {TopPercent: EdgeInset, LeftPercent: 50, RotationDeg: 0},
	direction.Right:       {TopPercent: 50, LeftPercent: 100 - EdgeInset, RotationDeg: -90},
	direction.Bottom:      {TopPercent: 100 - EdgeInset, LeftPercent: 50, RotationDeg: 180},
	direction.Left:        {TopPercent: 50, LeftPercent: EdgeInset, RotationDeg: 90},
	direction.TopRight:    {TopPercent: DiagonalInset, LeftPercent: 100 - DiagonalInset, RotationDeg: -45},
	direction.BottomRight: {TopPercent: 100 - DiagonalInset, LeftPercent: 100 - DiagonalInset, RotationDeg: -135},
	direction.BottomLeft:  {TopPercent: 100 - DiagonalInset, LeftPercent: DiagonalInset, RotationDeg: 135},
	direction.TopLeft:     {TopPercent: DiagonalInset, LeftPercent: DiagonalInset, RotationDeg: 45},
}

// AnchorFor returns the anchor of d.
func AnchorFor(d direction.Direction) (Anchor, bool) {
	a, ok := anchors[d]
	return a, ok
}
