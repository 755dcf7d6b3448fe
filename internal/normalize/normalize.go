// Package normalize turns raw spreadsheet cell values into the display
// strings printed on a label.
package normalize

import (
	"html"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var missingMarkers = map[string]struct{}{
	"nan":  {},
	"none": {},
	"null": {},
	"<na>": {},
}

// IsBlank reports whether a cell should be treated as empty. Spreadsheets
// exported through other tools often carry literal missing markers.
func IsBlank(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	_, missing := missingMarkers[strings.ToLower(trimmed)]
	return missing
}

// Text is used for names and addresses.
func Text(value string) string {
	if IsBlank(value) {
		return ""
	}
	collapsed := strings.Join(strings.Fields(html.UnescapeString(value)), " ")
	return cases.Title(language.Und).String(collapsed)
}

func Phone(value string) string {
	if IsBlank(value) {
		return ""
	}
	phone := strings.TrimSpace(value)
	if idx := strings.Index(phone, "."); idx >= 0 {
		phone = phone[:idx]
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "0") {
		phone = "0" + phone
	}
	return phone
}

// Amount returns the printable total. Orders whose note mentions "paid" are
// printed as zero so the courier does not collect cash on delivery.
func Amount(total, note string) string {
	if strings.Contains(strings.ToLower(note), "paid") {
		return "0"
	}
	n, ok := parseNumber(total)
	if !ok {
		return "0"
	}
	return strconv.FormatInt(n.IntPart(), 10)
}

// Item formats one line of the items list. The second result is false when
// the item has no usable name and must not be printed.
func Item(name, qty string) (string, bool) {
	if IsBlank(name) {
		return "", false
	}
	label := Text(name)
	if label == "" {
		return "", false
	}
	if q := Quantity(qty); q != "" {
		label += " (" + q + ")"
	}
	return label, true
}

// Quantity renders numeric quantities without a trailing ".0" and passes
// anything else through trimmed.
func Quantity(value string) string {
	if IsBlank(value) {
		return ""
	}
	trimmed := strings.TrimSpace(value)
	n, err := decimal.NewFromString(trimmed)
	if err != nil {
		return trimmed
	}
	return n.String()
}

func parseNumber(value string) (decimal.Decimal, bool) {
	if IsBlank(value) {
		return decimal.Zero, false
	}
	cleaned := strings.TrimSpace(value)
	lower := strings.ToLower(cleaned)
	for _, prefix := range []string{"tk.", "tk", "৳", "bdt"} {
		if strings.HasPrefix(lower, prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	n, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return n, true
}
