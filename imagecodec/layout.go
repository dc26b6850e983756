package imagecodec

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"health-report-service/models"
)

const (
	baseWidth  = 1080
	baseHeight = 1920

	backgroundHex = "#1A472B"
	accentHex     = "#F9A8D4"
	textHex       = "#FFFFFF"

	headerTitle = "SETOR"
	footerText  = "reported via www.sehatmonitor.xyz"
)

// textStyle describes one class of text on the card.
type textStyle struct {
	Class string
	Size  float64
	Bold  bool
	Color string
}

var (
	styleHeader = textStyle{Class: "header-title", Size: 48, Bold: true, Color: accentHex}
	styleLabel  = textStyle{Class: "label", Size: 24, Color: accentHex}
	styleValue  = textStyle{Class: "value", Size: 40, Bold: true, Color: textHex}
	styleDesc   = textStyle{Class: "desc-text", Size: 30, Color: textHex}
	styleFooter = textStyle{Class: "footer", Size: 24, Color: accentHex}
)

type textItem struct {
	X, Y   float64
	Text   string
	Style  textStyle
	Center bool
}

type lineItem struct {
	X1, Y1, X2, Y2 float64
}

type rect struct {
	X, Y, W, H float64
}

type photoSlot struct {
	Box   rect
	Label string
	Path  string
}

// cardLayout is the geometry of a report card, shared by the markup and raster renderers.
type cardLayout struct {
	Width, Height int
	Scale         float64
	Panel         rect
	Radius        float64
	Texts         []textItem
	Lines         []lineItem
	Photos        []photoSlot
}

var (
	fontsOnce             sync.Once
	regularFont, boldFont *truetype.Font
	fontsErr              error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

// faceFor returns a new face for style at the given scale. Faces are not safe for concurrent use.
func faceFor(style textStyle, scale float64) font.Face {
	f := regularFont
	if style.Bold {
		f = boldFont
	}
	return truetype.NewFace(f, &truetype.Options{Size: style.Size * scale, DPI: 72, Hinting: font.HintingFull})
}

// buildLayout positions every element of the card for report at width x height.
func buildLayout(report *models.Report, width, height int) (*cardLayout, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}

	w, h := float64(width), float64(height)
	s := math.Min(w/baseWidth, h/baseHeight)
	margin := 100 * s

	l := &cardLayout{
		Width:  width,
		Height: height,
		Scale:  s,
		Panel:  rect{X: 50 * s, Y: 150 * s, W: w - 100*s, H: h - 300*s},
		Radius: 20 * s,
	}

	valueFace := faceFor(styleValue, s)
	defer valueFace.Close()
	descFace := faceFor(styleDesc, s)
	defer descFace.Close()
	maxText := w - 2*margin

	add := func(x, y float64, text string, style textStyle, center bool) {
		l.Texts = append(l.Texts, textItem{X: x, Y: y * s, Text: text, Style: style, Center: center})
	}
	rule := func(y float64) {
		l.Lines = append(l.Lines, lineItem{X1: margin, Y1: y * s, X2: w - margin, Y2: y * s})
	}

	add(w/2, 100, headerTitle, styleHeader, true)

	add(margin, 220, "Halo! nama saya", styleLabel, false)
	add(margin, 270, fitLine(valueFace, report.Name, maxText), styleValue, false)
	rule(290)

	add(margin, 350, "Saya mendapatkan pelayanan kesehatan yang buruk di", styleLabel, false)
	add(margin, 400, fitLine(valueFace, report.Facility, maxText), styleValue, false)
	rule(420)

	score := "N/A"
	if report.WoundScore != nil {
		score = strconv.Itoa(*report.WoundScore)
	}
	add(margin, 480, "Wound Score", styleLabel, false)
	add(margin, 530, score, styleValue, false)

	add(margin, 600, "Deskripsi", styleLabel, false)
	desc := strings.TrimSpace(report.Description)
	if desc == "" {
		desc = "-"
	}
	const lineHeight, maxLines = 42.0, 9
	lines := wrapText(descFace, desc, maxText)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = fitLine(descFace, lines[maxLines-1]+" ...", maxText)
	}
	for i, line := range lines {
		add(margin, 650+float64(i)*lineHeight, line, styleDesc, false)
	}

	var photos []photoSlot
	if report.WoundImage != nil && *report.WoundImage != "" {
		photos = append(photos, photoSlot{Label: "Foto Luka", Path: *report.WoundImage})
	}
	if report.EvidenceImage != "" {
		photos = append(photos, photoSlot{Label: "Bukti Pendukung", Path: report.EvidenceImage})
	}
	if len(photos) > 0 {
		const gap = 40.0
		top, bottom := 1100*s, h-150*s
		slotW := (maxText - gap*s*float64(len(photos)-1)) / float64(len(photos))
		for i := range photos {
			x := margin + float64(i)*(slotW+gap*s)
			photos[i].Box = rect{X: x, Y: top, W: slotW, H: bottom - top}
			add(x, 1080, photos[i].Label, styleLabel, false)
		}
		l.Photos = photos
	}

	l.Texts = append(l.Texts, textItem{X: w / 2, Y: h - 50*s, Text: footerText, Style: styleFooter, Center: true})

	return l, nil
}

// wrapText greedily breaks text into lines no wider than maxWidth.
func wrapText(face font.Face, text string, maxWidth float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if measure(face, candidate) <= maxWidth || current == "" {
				current = candidate
				continue
			}
			lines = append(lines, fitLine(face, current, maxWidth))
			current = word
		}
		lines = append(lines, fitLine(face, current, maxWidth))
	}
	return lines
}

// fitLine truncates text with an ellipsis so that it fits maxWidth.
func fitLine(face font.Face, text string, maxWidth float64) string {
	if measure(face, text) <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if candidate := string(runes) + "…"; measure(face, candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}

func measure(face font.Face, text string) float64 {
	return float64(font.MeasureString(face, text)) / 64
}
