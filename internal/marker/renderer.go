package marker

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"go-attack-planner/internal/direction"
)

// Marker is a single arrow placed over the base image
type Marker struct {
	Direction direction.Direction `json:"direction"`
	Anchor
}

// Place returns one marker per direction in canonical order.
func Place(dirs direction.Set) []Marker {
	markers := make([]Marker, 0, dirs.Len())
	for _, d := range dirs.Sorted() {
		if a, ok := AnchorFor(d); ok {
			markers = append(markers, Marker{Direction: d, Anchor: a})
		}
	}
	return markers
}

// Style is the inline CSS that positions the marker centred on its anchor.
// Markers never take pointer events so the image underneath stays usable.
func (m Marker) Style() string {
	return fmt.Sprintf(
		"position:absolute;top:%s%%;left:%s%%;transform:translate(-50%%, -50%%) rotate(%sdeg);pointer-events:none;z-index:20",
		num(m.TopPercent), num(m.LeftPercent), num(m.RotationDeg))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const arrowSVG = `<svg width="48" height="48" viewBox="0 0 24 24" aria-hidden="true">` +
	`<path d="M12 3v11" stroke="white" stroke-width="3.5" stroke-linecap="round" stroke-linejoin="round"/>` +
	`<path d="M6 12l6 9 6-9" fill="white" stroke="black" stroke-width="1.25" stroke-linejoin="round"/>` +
	`</svg>`

var overlayTemplate = template.Must(template.New("overlay").Funcs(template.FuncMap{
	"css":   func(s string) template.CSS { return template.CSS(s) },
	"arrow": func() template.HTML { return template.HTML(arrowSVG) },
}).Parse(`<div class="marker-layer" data-phase="{{.Phase}}" style="position:absolute;inset:0;z-index:20;pointer-events:none" aria-hidden="true">` +
	`{{range .Markers}}<div class="marker marker-{{.Direction}}" data-direction="{{.Direction}}" style="{{css .Style}}">{{arrow}}</div>{{end}}` +
	`</div>`))

// RenderOverlay renders a non-interactive layer, meant to sit above the base
// image, holding one arrow per marker.
func RenderOverlay(phase string, markers []Marker) (string, error) {
	var buf bytes.Buffer
	err := overlayTemplate.Execute(&buf, struct {
		Phase   string
		Markers []Marker
	}{Phase: phase, Markers: markers})
	if err != nil {
		return "", fmt.Errorf("render overlay: %w", err)
	}
	return buf.String(), nil
}
