// Package batch renders a range of invoices, merges the labels into one
// printable document and packages everything into a zip archive.
package batch

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/phillip-england/shiplabel/internal/label"
	"github.com/phillip-england/shiplabel/internal/orders"
	"github.com/phillip-england/shiplabel/internal/security"
)

const (
	MergedName  = "merged_labels.pdf"
	ArchiveName = "shipping_labels_all.zip"
)

var (
	ErrRenderFailure    = errors.New("render failure")
	ErrPackagingFailure = errors.New("packaging failure")
	ErrNoLabels         = errors.New("no invoice in range has valid items")
)

func init() {
	api.DisableConfigDir()
}

type Document struct {
	Invoice string
	Name    string
	Path    string
}

type Result struct {
	Documents   []Document
	Skipped     []string
	MergedPath  string
	ArchivePath string
}

type Generator struct {
	Layout label.Layout
	Logger *zap.Logger
}

func NewGenerator(layout label.Layout, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{Layout: layout, Logger: logger}
}

// Generate renders every invoice in [start, end] into dir, then merges and
// archives them. Invoices without items are skipped; any other failure
// aborts the batch and no archive is produced.
func (g *Generator) Generate(grouper *orders.Grouper, start, end, dir string) (*Result, error) {
	ids, err := grouper.Range(start, end)
	if err != nil {
		return nil, err
	}
	log := g.logger().With(zap.String("start", start), zap.String("end", end), zap.String("dir", dir))

	result := &Result{}
	names := newNamer()
	for _, id := range ids {
		rec, err := grouper.Record(id)
		if err != nil {
			if errors.Is(err, orders.ErrNoValidItems) {
				log.Info("skipping invoice without items", zap.String("invoice", id))
				result.Skipped = append(result.Skipped, id)
				continue
			}
			return nil, err
		}

		name := names.next(security.ArchiveName(id))
		path := filepath.Join(dir, name)
		if err := label.RenderFile(path, rec, g.Layout); err != nil {
			log.Error("render failed", zap.String("invoice", id), zap.Error(err))
			return nil, fmt.Errorf("%w: invoice %s: %v", ErrRenderFailure, id, err)
		}
		result.Documents = append(result.Documents, Document{Invoice: id, Name: name, Path: path})
	}
	if len(result.Documents) == 0 {
		return nil, ErrNoLabels
	}

	result.MergedPath = filepath.Join(dir, MergedName)
	if err := Merge(result.Documents, result.MergedPath); err != nil {
		return nil, err
	}

	result.ArchivePath = filepath.Join(dir, ArchiveName)
	if err := writeArchiveFile(result.ArchivePath, result.Documents, result.MergedPath); err != nil {
		return nil, err
	}

	log.Info("batch generated",
		zap.Int("labels", len(result.Documents)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// Merge concatenates the documents, in order, into outPath.
func Merge(docs []Document, outPath string) error {
	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		paths = append(paths, doc.Path)
	}
	if err := api.MergeCreateFile(paths, outPath, false, nil); err != nil {
		return fmt.Errorf("%w: merge labels: %v", ErrPackagingFailure, err)
	}
	return nil
}

func writeArchiveFile(path string, docs []Document, mergedPath string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create archive: %v", ErrPackagingFailure, err)
	}
	if err := WriteArchive(f, docs, mergedPath); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close archive: %v", ErrPackagingFailure, err)
	}
	return nil
}

// WriteArchive writes a flat zip holding every document followed by the
// merged document.
func WriteArchive(w io.Writer, docs []Document, mergedPath string) error {
	zw := zip.NewWriter(w)
	for _, doc := range docs {
		if err := addFile(zw, doc.Name, doc.Path); err != nil {
			return err
		}
	}
	if mergedPath != "" {
		if err := addFile(zw, MergedName, mergedPath); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finish archive: %v", ErrPackagingFailure, err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrPackagingFailure, name, err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("%w: add %s: %v", ErrPackagingFailure, name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPackagingFailure, name, err)
	}
	return nil
}

// namer hands out unique file names; invoice ids that only differ by a
// path separator would otherwise collide.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: map[string]bool{}}
}

func (n *namer) next(base string) string {
	name := base + ".pdf"
	for i := 2; n.used[name] || name == MergedName; i++ {
		name = base + "-" + strconv.Itoa(i) + ".pdf"
	}
	n.used[name] = true
	return name
}
