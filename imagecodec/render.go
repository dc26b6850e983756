package imagecodec

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/apex/log"
	"github.com/fogleman/gg"

	"health-report-service/apperr"
	"health-report-service/models"
)

// Format is an output encoding for a rendered report card.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"

	jpegQuality = 90

	MaxDimension = 4096
	MinDimension = 200
)

// ParseFormat maps a user supplied format name to a Format. Empty means JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", apperr.New(apperr.KindValidation, "unsupported image format: %s", s)
}

// ContentType returns the MIME type of the encoded output.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/jpeg"
	}
}

// Extension returns the file extension, without dot.
func (f Format) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatSVG:
		return "svg"
	default:
		return "jpg"
	}
}

// RenderOptions selects the card size and encoding. Zero values mean 1080x1920 JPEG.
type RenderOptions struct {
	Width  int
	Height int
	Format Format
}

func validateSize(width, height int) error {
	if width < MinDimension || height < MinDimension || width > MaxDimension || height > MaxDimension {
		return apperr.New(apperr.KindValidation, "image size %dx%d out of range [%d, %d]",
			width, height, MinDimension, MaxDimension)
	}
	return nil
}

// RenderReport draws the report card and encodes it in opts.Format.
func RenderReport(report *models.Report, opts RenderOptions) ([]byte, error) {
	if report == nil {
		return nil, apperr.New(apperr.KindValidation, "report is required")
	}
	if opts.Format == "" {
		opts.Format = FormatJPEG
	}
	if opts.Width == 0 {
		opts.Width = baseWidth
	}
	if opts.Height == 0 {
		opts.Height = baseHeight
	}
	if err := validateSize(opts.Width, opts.Height); err != nil {
		return nil, err
	}

	layout, err := buildLayout(report, opts.Width, opts.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}

	if opts.Format == FormatSVG {
		return renderOverlay(layout)
	}

	dc := drawCard(layout)

	var buf bytes.Buffer
	switch opts.Format {
	case FormatPNG:
		err = dc.EncodePNG(&buf)
	case FormatJPEG:
		err = jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: jpegQuality})
	default:
		return nil, apperr.New(apperr.KindValidation, "unsupported image format: %s", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", opts.Format, err)
	}
	return buf.Bytes(), nil
}

func drawCard(l *cardLayout) *gg.Context {
	dc := gg.NewContext(l.Width, l.Height)

	dc.SetHexColor(backgroundHex)
	dc.Clear()

	dc.SetRGBA(0, 0, 0, 0.4)
	dc.DrawRoundedRectangle(l.Panel.X, l.Panel.Y, l.Panel.W, l.Panel.H, l.Radius)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	for _, line := range l.Lines {
		dc.DrawLine(line.X1, line.Y1, line.X2, line.Y2)
		dc.Stroke()
	}

	for _, slot := range l.Photos {
		drawPhoto(dc, slot)
	}

	for _, t := range l.Texts {
		face := faceFor(t.Style, l.Scale)
		dc.SetFontFace(face)
		dc.SetHexColor(t.Style.Color)
		ax := 0.0
		if t.Center {
			ax = 0.5
		}
		dc.DrawStringAnchored(t.Text, t.X, t.Y, ax, 0)
		face.Close()
	}

	return dc
}

// drawPhoto embeds the photo centred in its slot. Unreadable photos leave the slot outlined.
func drawPhoto(dc *gg.Context, slot photoSlot) {
	img, err := loadPhoto(slot.Path, int(slot.Box.W), int(slot.Box.H))
	if err != nil {
		log.WithError(err).WithField("path", slot.Path).Warn("skipping photo on report card")
		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(1)
		dc.DrawRectangle(slot.Box.X, slot.Box.Y, slot.Box.W, slot.Box.H)
		dc.Stroke()
		return
	}
	dc.DrawImageAnchored(img, int(slot.Box.X+slot.Box.W/2), int(slot.Box.Y+slot.Box.H/2), 0.5, 0.5)
}
