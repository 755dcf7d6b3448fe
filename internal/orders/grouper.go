package orders

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/phillip-england/shiplabel/internal/normalize"
)

// Grouper holds a forward-filled table grouped by invoice id.
type Grouper struct {
	groups   map[string][]Row
	invoices []string
}

func NewGrouper(table *Table, fill []Column) (*Grouper, error) {
	if len(fill) == 0 {
		return nil, ErrEmptyFillSet
	}
	if table == nil {
		return nil, ErrMissingFile
	}

	rows := ForwardFill(table.Rows, fill)
	g := &Grouper{groups: map[string][]Row{}}
	for _, row := range rows {
		if normalize.IsBlank(row.Invoice) {
			continue
		}
		id := strings.TrimSpace(row.Invoice)
		if _, seen := g.groups[id]; !seen {
			g.invoices = append(g.invoices, id)
		}
		g.groups[id] = append(g.groups[id], row)
	}
	sort.Strings(g.invoices)
	return g, nil
}

// ForwardFill returns a copy of rows where blank cells in the fill columns
// inherit the nearest preceding non-blank value. The invoice column carries
// across the whole file; every other column only carries within the same
// invoice so one order's details never leak into the next.
func ForwardFill(rows []Row, fill []Column) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)

	fillInvoice := false
	for _, col := range fill {
		if col == ColumnInvoice {
			fillInvoice = true
		}
	}

	last := map[Column]string{}
	currentInvoice := ""
	for i := range out {
		row := &out[i]
		if fillInvoice && normalize.IsBlank(row.Invoice) {
			row.Invoice = last[ColumnInvoice]
		}
		if !normalize.IsBlank(row.Invoice) {
			last[ColumnInvoice] = row.Invoice
		}

		invoice := strings.TrimSpace(row.Invoice)
		if invoice != currentInvoice {
			currentInvoice = invoice
			for col := range last {
				if col != ColumnInvoice {
					delete(last, col)
				}
			}
		}

		for _, col := range fill {
			if col == ColumnInvoice {
				continue
			}
			value := row.get(col)
			if normalize.IsBlank(value) {
				if carried, ok := last[col]; ok {
					row.set(col, carried)
				}
				continue
			}
			last[col] = value
		}
	}
	return out
}

// Invoices returns the unique invoice ids in ascending order.
func (g *Grouper) Invoices() []string {
	out := make([]string, len(g.invoices))
	copy(out, g.invoices)
	return out
}

// Range returns the sorted invoice ids from start to end inclusive.
func (g *Grouper) Range(start, end string) ([]string, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	startIdx := sort.SearchStrings(g.invoices, start)
	if startIdx >= len(g.invoices) || g.invoices[startIdx] != start {
		return nil, fmt.Errorf("%w: start invoice %q not found", ErrInvalidRange, start)
	}
	endIdx := sort.SearchStrings(g.invoices, end)
	if endIdx >= len(g.invoices) || g.invoices[endIdx] != end {
		return nil, fmt.Errorf("%w: end invoice %q not found", ErrInvalidRange, end)
	}
	if startIdx > endIdx {
		return nil, fmt.Errorf("%w: start invoice %q sorts after end invoice %q", ErrInvalidRange, start, end)
	}
	out := make([]string, endIdx-startIdx+1)
	copy(out, g.invoices[startIdx:endIdx+1])
	return out, nil
}

// Record builds the label record of one invoice from its row group.
func (g *Grouper) Record(invoice string) (LabelRecord, error) {
	rows, ok := g.groups[strings.TrimSpace(invoice)]
	if !ok {
		return LabelRecord{}, fmt.Errorf("%w: %q", ErrUnknownInvoice, invoice)
	}
	return BuildRecord(strings.TrimSpace(invoice), rows)
}

// Records builds every label in range. Invoices without valid items are
// reported in skipped instead of failing the call.
func (g *Grouper) Records(start, end string) ([]LabelRecord, []string, error) {
	ids, err := g.Range(start, end)
	if err != nil {
		return nil, nil, err
	}
	var records []LabelRecord
	var skipped []string
	for _, id := range ids {
		rec, err := g.Record(id)
		if err != nil {
			if errors.Is(err, ErrNoValidItems) {
				skipped = append(skipped, id)
				continue
			}
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// BuildRecord takes customer details from the first row and one item per
// row.
func BuildRecord(invoice string, rows []Row) (LabelRecord, error) {
	if len(rows) == 0 {
		return LabelRecord{}, fmt.Errorf("%w: %s", ErrNoValidItems, invoice)
	}
	first := rows[0]

	var items []string
	for _, row := range rows {
		if item, ok := normalize.Item(row.ItemName, row.ItemQty); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return LabelRecord{}, fmt.Errorf("%w: %s", ErrNoValidItems, invoice)
	}

	name := strings.TrimSpace(blankToEmpty(first.FirstName) + " " + blankToEmpty(first.LastName))
	return LabelRecord{
		Invoice: invoice,
		Name:    normalize.Text(name),
		Phone:   normalize.Phone(first.Phone),
		Address: normalize.Text(first.Address),
		Amount:  normalize.Amount(first.Total, first.Note),
		Items:   items,
	}, nil
}

func blankToEmpty(value string) string {
	if normalize.IsBlank(value) {
		return ""
	}
	return value
}
