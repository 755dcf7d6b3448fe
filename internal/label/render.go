package label

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/webp"

	"github.com/phillip-england/shiplabel/internal/orders"
)

// Render writes a single-page PDF for rec to w.
func Render(w io.Writer, rec orders.LabelRecord, layout Layout) error {
	pdf, err := compose(rec, layout)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// RenderFile is Render into a new file at path.
func RenderFile(path string, rec orders.LabelRecord, layout Layout) error {
	pdf, err := compose(rec, layout)
	if err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func compose(rec orders.LabelRecord, layout Layout) (*fpdf.Fpdf, error) {
	if len(layout.FontBytes) == 0 {
		return nil, errors.New("layout has no font")
	}
	family := layout.FontFamily
	if family == "" {
		family = defaultFontFamily
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: layout.PageWidth, Ht: layout.PageHeight},
	})
	pdf.SetMargins(layout.Margin, layout.Margin, layout.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(family, "", layout.FontBytes)
	pdf.AddPage()

	if err := drawBand(pdf, "header", layout.HeaderImage, 0, layout.PageWidth, layout.HeaderHeight); err != nil {
		return nil, err
	}

	pdf.SetFont(family, "", layout.FontSize)
	pdf.SetXY(layout.Margin, layout.ContentTop)
	for _, line := range Lines(rec) {
		pdf.SetX(layout.Margin)
		if line.Wrap {
			pdf.MultiCell(0, layout.LineHeight, line.Text, "", "L", false)
			continue
		}
		pdf.CellFormat(0, layout.LineHeight, line.Text, "", 1, "L", false, 0, "")
	}

	if err := drawBand(pdf, "footer", layout.FooterImage, layout.FooterTop, layout.PageWidth, layout.FooterHeight); err != nil {
		return nil, err
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("compose label %s: %w", rec.Invoice, err)
	}
	return pdf, nil
}

// drawBand places an image across the full page width. Missing paths are
// skipped without error so labels still print without branding.
func drawBand(pdf *fpdf.Fpdf, name, path string, y, width, height float64) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s image: %w", name, err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("decode %s image: %w", name, err)
	}
	raw, err := encodePNG(img)
	if err != nil {
		return fmt.Errorf("encode %s image: %w", name, err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	pdf.ImageOptions(name, 0, y, width, height, false, opts, 0, "")
	return nil
}

// PrepareImage decodes an uploaded png, jpeg or webp image and re-encodes
// it as PNG no wider than maxWidth pixels.
func PrepareImage(r io.Reader, maxWidth int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.New("invalid image dimensions")
	}
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.PNG); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
