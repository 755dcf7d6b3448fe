// Package label draws one shipping label per PDF page.
//
// A label is a fixed 4x6 inch page. The header image fills the top band,
// the footer image fills a band near the bottom, and the order details are
// printed between them starting at ContentTop. Content that does not fit is
// not paginated; keeping item lists short enough is up to the caller.
package label

import (
	"fmt"
	"os"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/phillip-england/shiplabel/internal/orders"
)

const defaultFontFamily = "LabelFont"

// Layout carries everything a render needs. All lengths are millimetres.
type Layout struct {
	PageWidth    float64
	PageHeight   float64
	Margin       float64
	HeaderHeight float64
	ContentTop   float64
	FooterTop    float64
	FooterHeight float64
	LineHeight   float64
	FontSize     float64
	FontFamily   string
	FontBytes    []byte
	HeaderImage  string
	FooterImage  string
}

func DefaultLayout() Layout {
	return Layout{
		PageWidth:    101.6,
		PageHeight:   152.4,
		Margin:       5,
		HeaderHeight: 30,
		ContentTop:   41,
		FooterTop:    106.4,
		FooterHeight: 49,
		LineHeight:   5,
		FontSize:     9,
		FontFamily:   defaultFontFamily,
		FontBytes:    goregular.TTF,
	}
}

// WithFontFile swaps the embedded face for a TrueType file on disk.
func (l Layout) WithFontFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return l, fmt.Errorf("read font %s: %w", path, err)
	}
	if len(data) == 0 {
		return l, fmt.Errorf("font %s is empty", path)
	}
	l.FontBytes = data
	return l, nil
}

// WithImages returns a copy bound to one request's header and footer.
func (l Layout) WithImages(header, footer string) Layout {
	l.HeaderImage = header
	l.FooterImage = footer
	return l
}

// Line is one printed row of the content zone. Wrap lines may break over
// several physical lines.
type Line struct {
	Text string
	Wrap bool
}

// Lines lays out the content zone of a label from top to bottom.
func Lines(rec orders.LabelRecord) []Line {
	lines := []Line{
		{Text: "Invoice #: " + rec.Invoice},
		{Text: "Name: " + rec.Name},
		{Text: "Phone: " + rec.Phone},
		{Text: "Address: " + rec.Address, Wrap: true},
		{Text: "Total: Tk " + rec.Amount},
		{Text: "Items:"},
	}
	for _, item := range rec.Items {
		lines = append(lines, Line{Text: "- " + item})
	}
	return lines
}
