package shiplabelcli

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/shiplabel/internal/orders"
)

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	rows := [][]any{
		{"Invoice", "First Name", "Last Name", "Phone", "Address", "Total", "Note", "Item Name", "Quantity"},
		{"INV-1", "jane", "doe", "1712345678", "dhaka", "1500", "", "widget a", 2},
		{"INV-2", "john", "smith", "1811111111", "khulna", "700", "", "gadget", 1},
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	path := filepath.Join(dir, "orders.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"--config", filepath.Join(dir, "missing.toml"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}
	var stdout, stderr bytes.Buffer
	err := execute(append(args, base...), &stdout, &stderr)
	return stdout.String(), err
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"bogus"},
		{"run"},
		{"invoices"},
		{"generate"},
		{"generate", "--nope"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := execute(args, &stdout, &stderr)
			require.ErrorIs(t, err, ErrUsage)
		})
	}
}

func TestSetupWritesEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	var stdout, stderr bytes.Buffer
	require.NoError(t, execute([]string{"setup", "--env-file", envPath, "--data-dir", "labels"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), envPath)

	values, err := godotenv.Read(envPath)
	require.NoError(t, err)
	assert.Equal(t, "labels", values["DATA_DIR"])
	assert.Equal(t, ":8080", values["API_ADDR"])
	assert.Equal(t, "http://localhost:8080", values["API_BASE_URL"])

	err = execute([]string{"setup", "--env-file", envPath}, &stdout, &stderr)
	require.Error(t, err)
	require.NoError(t, execute([]string{"setup", "--env-file", envPath, "--force"}, &stdout, &stderr))
}

func TestInvoicesCommand(t *testing.T) {
	path := writeWorkbook(t, t.TempDir())
	out, err := run(t, "invoices", path)
	require.NoError(t, err)
	assert.Equal(t, "INV-1\nINV-2\n", out)
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir)
	archive := filepath.Join(dir, "out", "labels.zip")

	out, err := run(t, "generate", "--file", path, "--out", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "2 labels, 0 skipped")

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"INV-1.pdf", "INV-2.pdf", "merged_labels.pdf"}, names)
}

func TestGenerateMissingFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "x.zip")
	_, err := run(t, "generate", "--file", filepath.Join(dir, "nope.xlsx"), "--out", out)
	require.ErrorIs(t, err, orders.ErrMissingFile)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "generate")
	assert.Contains(t, buf.String(), "invoices")
}
