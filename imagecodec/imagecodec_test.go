package imagecodec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-report-service/apperr"
	"health-report-service/models"
)

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	path := filepath.Join(dir, "photo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestEncodeImageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wound.jpg")
	content := []byte{0xff, 0xd8, 0xff, 0x00, 0x01, 0x02, 0x03}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	payload, err := EncodeImage(path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", payload.MediaType)

	decoded, err := base64.StdEncoding.DecodeString(payload.Data)
	require.NoError(t, err)
	assert.Equal(t, content, decoded)
	assert.True(t, strings.HasPrefix(payload.DataURL(), "data:image/png;base64,"))
}

func TestEncodeImageDefaultsMediaType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wound")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	payload, err := EncodeImage(path, "")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", payload.MediaType)
}

func TestEncodeImageMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.jpg")

	_, err := EncodeImage(missing, "image/jpeg")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, 400, apperr.HTTPStatus(err))
	assert.Contains(t, err.Error(), missing)
}

func TestOverlayContainsReportValues(t *testing.T) {
	report := &models.Report{
		Name:        "Jane",
		Facility:    "Clinic A",
		Description: "Long wait",
		WoundScore:  intPtr(42),
	}

	svg, err := Overlay(report, 1080, 1920)
	require.NoError(t, err)

	out := string(svg)
	assert.Contains(t, out, ">Jane</text>")
	assert.Contains(t, out, ">Clinic A</text>")
	assert.Contains(t, out, ">42</text>")
	assert.Contains(t, out, ">Long wait</text>")
	assert.Contains(t, out, "SETOR")
	assert.Contains(t, out, "reported via www.sehatmonitor.xyz")
	assert.Contains(t, out, `width="1080" height="1920"`)
}

func TestOverlayMissingScore(t *testing.T) {
	svg, err := Overlay(&models.Report{Name: "Jane", Facility: "Clinic A"}, 1080, 1920)
	require.NoError(t, err)
	assert.Contains(t, string(svg), ">N/A</text>")
}

func TestOverlayEscapesText(t *testing.T) {
	report := &models.Report{
		Name:        `<script>alert("x")</script>`,
		Facility:    "Tom & Jerry",
		Description: "a < b",
	}

	svg, err := Overlay(report, 1080, 1920)
	require.NoError(t, err)

	out := string(svg)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Tom &amp; Jerry")
	assert.Contains(t, out, "a &lt; b")
}

func TestOverlayWrapsLongDescription(t *testing.T) {
	report := &models.Report{
		Name:        "Jane",
		Facility:    "Clinic A",
		Description: strings.Repeat("antrian panjang sekali ", 40),
	}

	svg, err := Overlay(report, 1080, 1920)
	require.NoError(t, err)
	assert.Greater(t, strings.Count(string(svg), `class="desc-text"`), 1)
}

func TestRenderReportFormats(t *testing.T) {
	report := &models.Report{Name: "Jane", Facility: "Clinic A", WoundScore: intPtr(42)}

	tests := []struct {
		name   string
		format Format
		decode func([]byte) (image.Image, error)
	}{
		{"jpeg", FormatJPEG, func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) }},
		{"png", FormatPNG, func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderReport(report, RenderOptions{Width: 540, Height: 960, Format: tt.format})
			require.NoError(t, err)

			img, err := tt.decode(out)
			require.NoError(t, err)
			assert.Equal(t, 540, img.Bounds().Dx())
			assert.Equal(t, 960, img.Bounds().Dy())
		})
	}
}

func TestRenderReportSVG(t *testing.T) {
	out, err := RenderReport(&models.Report{Name: "Jane"}, RenderOptions{Format: FormatSVG})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "<svg"))
	assert.Contains(t, string(out), `width="1080" height="1920"`)
}

func TestRenderReportEmbedsPhoto(t *testing.T) {
	path := writePNG(t, t.TempDir(), 400, 300)
	report := &models.Report{Name: "Jane", Facility: "Clinic A", WoundImage: strPtr(path)}

	out, err := RenderReport(report, RenderOptions{Width: 1080, Height: 1920, Format: FormatPNG})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// The single photo slot spans the card width below y=1100; its centre must be the photo's red.
	r, g, b, _ := img.At(540, 1100+(1920-150-1100)/2).RGBA()
	assert.Greater(t, r>>8, uint32(150))
	assert.Less(t, g>>8, uint32(80))
	assert.Less(t, b>>8, uint32(80))
}

func TestRenderReportMissingPhotoStillRenders(t *testing.T) {
	report := &models.Report{Name: "Jane", EvidenceImage: filepath.Join(t.TempDir(), "gone.jpg")}

	out, err := RenderReport(report, RenderOptions{Width: 1080, Height: 1920, Format: FormatJPEG})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderReportInvalidSize(t *testing.T) {
	_, err := RenderReport(&models.Report{}, RenderOptions{Width: 10, Height: 1920})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJPEG, false},
		{"JPG", FormatJPEG, false},
		{"png", FormatPNG, false},
		{"svg", FormatSVG, false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCorrectOrientationRotates(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})

	rotated := correctOrientation(src, 6)
	assert.Equal(t, 2, rotated.Bounds().Dx())
	assert.Equal(t, 4, rotated.Bounds().Dy())

	r, _, _, _ := rotated.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestCorrectOrientationAllTags(t *testing.T) {
	// 3x2 source; pixel (x, y) carries R = 10x+y+1.
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(10*x + y + 1), A: 255})
		}
	}

	tests := []struct {
		orientation int
		w, h        int
		first, last image.Point // where (0,0) and (2,1) land
	}{
		{2, 3, 2, image.Pt(2, 0), image.Pt(0, 1)},
		{3, 3, 2, image.Pt(2, 1), image.Pt(0, 0)},
		{4, 3, 2, image.Pt(0, 1), image.Pt(2, 0)},
		{5, 2, 3, image.Pt(0, 0), image.Pt(1, 2)},
		{6, 2, 3, image.Pt(1, 0), image.Pt(0, 2)},
		{7, 2, 3, image.Pt(1, 2), image.Pt(0, 0)},
		{8, 2, 3, image.Pt(0, 2), image.Pt(1, 0)},
	}
	for _, tt := range tests {
		out := correctOrientation(src, tt.orientation)
		rgba, ok := out.(*image.RGBA)
		require.True(t, ok, "orientation %d", tt.orientation)
		assert.Equal(t, image.Rect(0, 0, tt.w, tt.h), rgba.Bounds(), "orientation %d", tt.orientation)
		assert.Equal(t, uint8(1), rgba.RGBAAt(tt.first.X, tt.first.Y).R, "orientation %d", tt.orientation)
		assert.Equal(t, uint8(22), rgba.RGBAAt(tt.last.X, tt.last.Y).R, "orientation %d", tt.orientation)
	}

	assert.Same(t, src, correctOrientation(src, 1))
}

func TestCorrectOrientationSubImage(t *testing.T) {
	full := image.NewRGBA(image.Rect(0, 0, 6, 6))
	full.Set(2, 3, color.RGBA{G: 255, A: 255})
	sub := full.SubImage(image.Rect(2, 3, 5, 5))

	out := correctOrientation(sub, 3).(*image.RGBA)
	assert.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
	assert.Equal(t, uint8(255), out.RGBAAt(2, 1).G)
}

// writeOversizedPNGHeader writes a PNG whose IHDR claims w x h pixels but carries no image data.
func writeOversizedPNGHeader(t *testing.T, dir string, w, h uint32) string {
	t.Helper()
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8], ihdr[9] = 8, 6 // 8-bit RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))

	path := filepath.Join(dir, "huge.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadPhotoRejectsOversizedDimensions(t *testing.T) {
	path := writeOversizedPNGHeader(t, t.TempDir(), 50000, 50000)

	_, err := loadPhoto(path, 880, 670)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image too large")
}

func TestLoadPhotoPixelBudget(t *testing.T) {
	saved := maxPhotoPixels
	maxPhotoPixels = 1000
	t.Cleanup(func() { maxPhotoPixels = saved })

	path := writePNG(t, t.TempDir(), 400, 300)
	_, err := loadPhoto(path, 880, 670)
	require.Error(t, err)

	maxPhotoPixels = 400 * 300
	_, err = loadPhoto(path, 880, 670)
	assert.NoError(t, err)
}

func TestRenderReportOversizedPhotoLeavesSlotEmpty(t *testing.T) {
	path := writeOversizedPNGHeader(t, t.TempDir(), 50000, 50000)
	report := &models.Report{Name: "Jane", Facility: "Clinic A", WoundImage: strPtr(path)}

	out, err := RenderReport(report, RenderOptions{Width: 1080, Height: 1920, Format: FormatPNG})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, _, _, _ := img.At(540, 1100+(1920-150-1100)/2).RGBA()
	assert.Less(t, r>>8, uint32(100))
}

func TestFitImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 400))

	fitted := fitImage(src, 200, 200)
	assert.Equal(t, 200, fitted.Bounds().Dx())
	assert.Equal(t, 100, fitted.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 50, 50))
	assert.Same(t, small, fitImage(small, 200, 200))
}
