package security

import (
	"path/filepath"
	"testing"
)

func TestArchiveNameReplacesSeparators(t *testing.T) {
	cases := map[string]string{
		"INV-1":      "INV-1",
		"2024/05/17": "2024-05-17",
		`A\B`:        "A-B",
		"  INV 7  ":  "INV 7",
		"..":         "label",
		"":           "label",
		"x\x00y":     "xy",
	}
	for input, want := range cases {
		if got := ArchiveName(input); got != want {
			t.Fatalf("ArchiveName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestUploadNameStripsDirectories(t *testing.T) {
	cases := map[string]string{
		"orders.xlsx":             "orders.xlsx",
		"../../etc/passwd":        "passwd",
		`C:\Users\me\Orders.xlsx`: "Orders.xlsx",
		"my orders (1).xlsx":      "my_orders__1_.xlsx",
		"...":                     "upload",
	}
	for input, want := range cases {
		if got := UploadName(input); got != want {
			t.Fatalf("UploadName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "uploads", "a.xlsx")
	got, err := Within(root, inside)
	if err != nil {
		t.Fatalf("expected path inside root to pass: %v", err)
	}
	if got != inside {
		t.Fatalf("Within returned %q, want %q", got, inside)
	}

	if _, err := Within(root, filepath.Join(root, "..", "secret")); err != ErrUnsafePath {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
	if _, err := Within(root, root); err != ErrUnsafePath {
		t.Fatalf("expected root itself to be rejected, got %v", err)
	}
}
