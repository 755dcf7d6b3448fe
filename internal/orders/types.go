package orders

import "errors"

var (
	ErrMissingFile    = errors.New("missing file")
	ErrMissingColumn  = errors.New("missing required column")
	ErrEmptyFillSet   = errors.New("forward-fill column set is empty")
	ErrInvalidRange   = errors.New("invalid invoice range")
	ErrUnknownInvoice = errors.New("unknown invoice")
	ErrNoValidItems   = errors.New("invoice has no valid items")
)

// Row is one spreadsheet line. Values are kept exactly as read so that
// forward-fill can tell blank cells apart from real ones.
type Row struct {
	Invoice   string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	Total     string
	Note      string
	ItemName  string
	ItemQty   string
}

type Table struct {
	Rows []Row
}

// LabelRecord is the normalized content of one printed label.
type LabelRecord struct {
	Invoice string   `json:"invoice"`
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Address string   `json:"address"`
	Amount  string   `json:"amount"`
	Items   []string `json:"items"`
}
