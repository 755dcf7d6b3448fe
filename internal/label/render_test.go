package label

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip-england/shiplabel/internal/orders"
)

func sampleRecord() orders.LabelRecord {
	return orders.LabelRecord{
		Invoice: "INV-1",
		Name:    "Jane Doe",
		Phone:   "01712345678",
		Address: "House 4 Road 2, Dhanmondi, Dhaka 1205, Bangladesh",
		Amount:  "1250",
		Items:   []string{"Widget A (2)", "Widget B"},
	}
}

func TestLines(t *testing.T) {
	got := Lines(sampleRecord())
	want := []Line{
		{Text: "Invoice #: INV-1"},
		{Text: "Name: Jane Doe"},
		{Text: "Phone: 01712345678"},
		{Text: "Address: House 4 Road 2, Dhanmondi, Dhaka 1205, Bangladesh", Wrap: true},
		{Text: "Total: Tk 1250"},
		{Text: "Items:"},
		{Text: "- Widget A (2)"},
		{Text: "- Widget B"},
	}
	assert.Equal(t, want, got)
}

func TestDefaultLayoutGeometry(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, 101.6, l.PageWidth)
	assert.Equal(t, 152.4, l.PageHeight)
	assert.Equal(t, 5.0, l.Margin)
	assert.Equal(t, 41.0, l.ContentTop)
	assert.NotEmpty(t, l.FontBytes)
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r.NumPage()
}

func TestRenderSinglePage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, sampleRecord(), DefaultLayout()))
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))
	assert.Equal(t, 1, pageCount(t, out.Bytes()))
}

func TestRenderSkipsMissingImages(t *testing.T) {
	dir := t.TempDir()
	layout := DefaultLayout().WithImages(filepath.Join(dir, "nope.png"), filepath.Join(dir, "gone.png"))

	var out bytes.Buffer
	require.NoError(t, Render(&out, sampleRecord(), layout))
	assert.Equal(t, 1, pageCount(t, out.Bytes()))
}

func TestRenderWithImages(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "header.png")
	footer := filepath.Join(dir, "footer.jpg")
	require.NoError(t, imaging.Save(imaging.New(400, 120, color.NRGBA{R: 200, A: 255}), header))
	require.NoError(t, imaging.Save(imaging.New(400, 190, color.NRGBA{B: 200, A: 255}), footer))

	var plain bytes.Buffer
	require.NoError(t, Render(&plain, sampleRecord(), DefaultLayout()))

	var branded bytes.Buffer
	require.NoError(t, Render(&branded, sampleRecord(), DefaultLayout().WithImages(header, footer)))
	assert.Equal(t, 1, pageCount(t, branded.Bytes()))
	assert.Greater(t, branded.Len(), plain.Len())
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "INV-1.pdf")
	require.NoError(t, RenderFile(path, sampleRecord(), DefaultLayout()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, pageCount(t, data))
}

func TestRenderWithoutFont(t *testing.T) {
	layout := DefaultLayout()
	layout.FontBytes = nil
	err := Render(&bytes.Buffer{}, sampleRecord(), layout)
	require.Error(t, err)
}

func TestWithFontFileMissing(t *testing.T) {
	_, err := DefaultLayout().WithFontFile(filepath.Join(t.TempDir(), "missing.ttf"))
	require.Error(t, err)
}

func TestPrepareImageDownscales(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, imaging.Encode(&src, imaging.New(2000, 500, color.NRGBA{G: 255, A: 255}), imaging.JPEG))

	out, err := PrepareImage(&src, 1200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	_, err := PrepareImage(bytes.NewReader([]byte("not an image")), 1200)
	require.Error(t, err)
}
