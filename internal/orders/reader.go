package orders

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/shiplabel/internal/normalize"
)

const maxXLSRows = 100000

// ReadTable parses the first worksheet of an order export. The extension of
// filename selects the decoder; a trailing ".xz" is decompressed first.
func ReadTable(reader io.Reader, filename string) (*Table, error) {
	rows, err := readRowsFromSpreadsheet(reader, filename)
	if err != nil {
		return nil, err
	}
	return tableFromRows(rows)
}

func tableFromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}
	index, err := indexHeaders(rows[0])
	if err != nil {
		return nil, err
	}

	table := &Table{}
	for _, raw := range rows[1:] {
		if blankRow(raw) {
			continue
		}
		var row Row
		for col, idx := range index {
			row.set(col, cellValue(raw, idx))
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readRowsFromSpreadsheet(reader io.Reader, filename string) ([][]string, error) {
	if reader == nil {
		return nil, ErrMissingFile
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet is empty", ErrMissingFile)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xz" {
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xz stream: %w", err)
		}
		data, err = io.ReadAll(xr)
		if err != nil {
			return nil, fmt.Errorf("decompress xz stream: %w", err)
		}
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(filename, filepath.Ext(filename))))
	}

	switch ext {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		rows := workbook.ReadAllCells(maxXLSRows)
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("no worksheet found")
		}

		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	}
}

// ManualItem and ManualEntry describe a label typed into the form instead of
// uploaded as a spreadsheet.
type ManualItem struct {
	Name string `json:"name"`
	Qty  string `json:"qty"`
}

type ManualEntry struct {
	Invoice string       `json:"invoice"`
	Name    string       `json:"name"`
	Phone   string       `json:"phone"`
	Address string       `json:"address"`
	Amount  string       `json:"amount"`
	Note    string       `json:"note"`
	Items   []ManualItem `json:"items"`
}

// ManualTable lays a manual entry out the way an export would: customer
// details on the first row, one row per item.
func ManualTable(entry ManualEntry) *Table {
	first := Row{
		Invoice:   strings.TrimSpace(entry.Invoice),
		FirstName: entry.Name,
		Phone:     entry.Phone,
		Address:   entry.Address,
		Total:     entry.Amount,
		Note:      entry.Note,
	}
	table := &Table{}
	if len(entry.Items) == 0 {
		table.Rows = append(table.Rows, first)
		return table
	}
	for i, item := range entry.Items {
		row := Row{Invoice: first.Invoice}
		if i == 0 {
			row = first
		}
		row.ItemName = item.Name
		row.ItemQty = item.Qty
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Validate reports the first missing required manual field.
func (e ManualEntry) Validate() error {
	switch {
	case normalize.IsBlank(e.Invoice):
		return fmt.Errorf("invoice is required")
	case normalize.IsBlank(e.Name):
		return fmt.Errorf("name is required")
	case normalize.IsBlank(e.Phone):
		return fmt.Errorf("phone is required")
	case normalize.IsBlank(e.Address):
		return fmt.Errorf("address is required")
	}
	return nil
}
