package imagecodec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"

	"health-report-service/models"
)

var overlayFuncs = template.FuncMap{
	"esc": func(s string) string {
		var b strings.Builder
		_ = xml.EscapeText(&b, []byte(s))
		return b.String()
	},
	"px": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"anchor": func(center bool) string {
		if center {
			return "middle"
		}
		return "start"
	},
	"weight": func(bold bool) string {
		if bold {
			return "bold"
		}
		return "normal"
	},
	"size": func(style textStyle, scale float64) string {
		return fmt.Sprintf("%.1f", style.Size*scale)
	},
}

// Every interpolated text value goes through esc.
var overlayTemplate = template.Must(template.New("overlay").Funcs(overlayFuncs).Parse(
	`<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%" height="100%" fill="{{.Background}}"/>
  <rect x="{{px .Panel.X}}" y="{{px .Panel.Y}}" width="{{px .Panel.W}}" height="{{px .Panel.H}}" fill="rgba(0,0,0,0.4)" rx="{{px .Radius}}"/>
{{- range .Lines}}
  <line x1="{{px .X1}}" y1="{{px .Y1}}" x2="{{px .X2}}" y2="{{px .Y2}}" stroke="white" stroke-width="2"/>
{{- end}}
{{- range .Photos}}
  <rect x="{{px .Box.X}}" y="{{px .Box.Y}}" width="{{px .Box.W}}" height="{{px .Box.H}}" fill="none" stroke="white" stroke-width="1"/>
{{- end}}
{{- $scale := .Scale}}
{{- range .Texts}}
  <text x="{{px .X}}" y="{{px .Y}}" class="{{.Style.Class}}" font-family="Arial, sans-serif" font-size="{{size .Style $scale}}" font-weight="{{weight .Style.Bold}}" fill="{{.Style.Color}}" text-anchor="{{anchor .Center}}">{{esc .Text}}</text>
{{- end}}
</svg>
`))

type overlayData struct {
	*cardLayout
	Background string
}

// Overlay returns the SVG markup of the report card at width x height. Photos are
// drawn only by RenderReport; the overlay marks their slots.
func Overlay(report *models.Report, width, height int) ([]byte, error) {
	if err := validateSize(width, height); err != nil {
		return nil, err
	}
	layout, err := buildLayout(report, width, height)
	if err != nil {
		return nil, err
	}
	return renderOverlay(layout)
}

func renderOverlay(layout *cardLayout) ([]byte, error) {
	var buf bytes.Buffer
	if err := overlayTemplate.Execute(&buf, overlayData{cardLayout: layout, Background: backgroundHex}); err != nil {
		return nil, fmt.Errorf("failed to render overlay: %w", err)
	}
	return buf.Bytes(), nil
}
