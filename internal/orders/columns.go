package orders

import (
	"fmt"
	"strings"
)

type Column int

const (
	ColumnInvoice Column = iota
	ColumnFirstName
	ColumnLastName
	ColumnPhone
	ColumnAddress
	ColumnTotal
	ColumnNote
	ColumnItemName
	ColumnItemQty
)

// DefaultFill lists the columns that only the first row of a multi-item
// order usually carries.
var DefaultFill = []Column{
	ColumnInvoice,
	ColumnFirstName,
	ColumnLastName,
	ColumnPhone,
	ColumnAddress,
	ColumnTotal,
	ColumnNote,
}

var columnNames = map[Column]string{
	ColumnInvoice:   "invoice",
	ColumnFirstName: "first name",
	ColumnLastName:  "last name",
	ColumnPhone:     "phone",
	ColumnAddress:   "address",
	ColumnTotal:     "total",
	ColumnNote:      "note",
	ColumnItemName:  "item name",
	ColumnItemQty:   "item qty",
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return fmt.Sprintf("column(%d)", int(c))
}

// ParseColumn accepts the canonical column names used by String, which is
// how fill sets are written in configuration.
func ParseColumn(name string) (Column, error) {
	key := normalizeHeader(name)
	for col, canonical := range columnNames {
		if canonical == key {
			return col, nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}

var headerAliases = map[string]Column{
	"invoice":        ColumnInvoice,
	"invoice id":     ColumnInvoice,
	"invoice no":     ColumnInvoice,
	"invoice number": ColumnInvoice,
	"invoice #":      ColumnInvoice,
	"order":          ColumnInvoice,
	"order id":       ColumnInvoice,
	"order number":   ColumnInvoice,

	"first name":          ColumnFirstName,
	"firstname":           ColumnFirstName,
	"customer first name": ColumnFirstName,
	"name":                ColumnFirstName,
	"customer name":       ColumnFirstName,
	"customer":            ColumnFirstName,

	"last name":          ColumnLastName,
	"lastname":           ColumnLastName,
	"customer last name": ColumnLastName,

	"phone":        ColumnPhone,
	"phone number": ColumnPhone,
	"mobile":       ColumnPhone,
	"contact":      ColumnPhone,

	"address":          ColumnAddress,
	"shipping address": ColumnAddress,
	"delivery address": ColumnAddress,

	"total":        ColumnTotal,
	"total amount": ColumnTotal,
	"order total":  ColumnTotal,
	"amount":       ColumnTotal,

	"note":    ColumnNote,
	"notes":   ColumnNote,
	"remarks": ColumnNote,

	"item":         ColumnItemName,
	"item name":    ColumnItemName,
	"product":      ColumnItemName,
	"product name": ColumnItemName,

	"qty":           ColumnItemQty,
	"quantity":      ColumnItemQty,
	"item qty":      ColumnItemQty,
	"item quantity": ColumnItemQty,
}

// fullNameAliases only count as a first-name column when the sheet has no
// dedicated first-name header.
var fullNameAliases = map[string]bool{
	"name":          true,
	"customer name": true,
	"customer":      true,
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), " "))
}

func indexHeaders(header []string) (map[Column]int, error) {
	index := map[Column]int{}
	fullNameIdx := -1
	for i, raw := range header {
		key := normalizeHeader(raw)
		col, ok := headerAliases[key]
		if !ok {
			continue
		}
		if fullNameAliases[key] {
			if fullNameIdx == -1 {
				fullNameIdx = i
			}
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}
	if _, ok := index[ColumnFirstName]; !ok && fullNameIdx >= 0 {
		index[ColumnFirstName] = fullNameIdx
	}

	for _, required := range []Column{ColumnInvoice, ColumnItemName} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return index, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (r Row) get(c Column) string {
	switch c {
	case ColumnInvoice:
		return r.Invoice
	case ColumnFirstName:
		return r.FirstName
	case ColumnLastName:
		return r.LastName
	case ColumnPhone:
		return r.Phone
	case ColumnAddress:
		return r.Address
	case ColumnTotal:
		return r.Total
	case ColumnNote:
		return r.Note
	case ColumnItemName:
		return r.ItemName
	case ColumnItemQty:
		return r.ItemQty
	}
	return ""
}

func (r *Row) set(c Column, value string) {
	switch c {
	case ColumnInvoice:
		r.Invoice = value
	case ColumnFirstName:
		r.FirstName = value
	case ColumnLastName:
		r.LastName = value
	case ColumnPhone:
		r.Phone = value
	case ColumnAddress:
		r.Address = value
	case ColumnTotal:
		r.Total = value
	case ColumnNote:
		r.Note = value
	case ColumnItemName:
		r.ItemName = value
	case ColumnItemQty:
		r.ItemQty = value
	}
}
