package apiapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phillip-england/shiplabel/internal/batch"
	"github.com/phillip-england/shiplabel/internal/label"
	"github.com/phillip-england/shiplabel/internal/middleware"
	"github.com/phillip-england/shiplabel/internal/orders"
	"github.com/phillip-england/shiplabel/internal/security"
	"github.com/phillip-england/shiplabel/internal/storage"
)

var allowedImageMimes = []string{"image/png", "image/jpeg", "image/webp"}

type Config struct {
	Addr           string
	MaxUploadBytes int64
	ImageMaxWidth  int
	Fill           []orders.Column
	Layout         label.Layout
	Storage        *storage.Storage
	Logger         *zap.Logger
}

type generateLabelsRequest struct {
	FilePath     string `json:"file_path"`
	StartInvoice string `json:"start_invoice"`
	EndInvoice   string `json:"end_invoice"`
	HeaderFile   string `json:"header_file"`
	FooterFile   string `json:"footer_file"`
}

type manualLabelRequest struct {
	orders.ManualEntry
	HeaderFile string `json:"header_file"`
	FooterFile string `json:"footer_file"`
}

type server struct {
	store          *storage.Storage
	layout         label.Layout
	fill           []orders.Column
	maxUploadBytes int64
	imageMaxWidth  int
	logger         *zap.Logger
}

func newServer(cfg Config) (*server, error) {
	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.Fill) == 0 {
		cfg.Fill = orders.DefaultFill
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.ImageMaxWidth <= 0 {
		cfg.ImageMaxWidth = 1200
	}
	if len(cfg.Layout.FontBytes) == 0 {
		cfg.Layout = label.DefaultLayout()
	}
	return &server{
		store:          cfg.Storage,
		layout:         cfg.Layout,
		fill:           cfg.Fill,
		maxUploadBytes: cfg.MaxUploadBytes,
		imageMaxWidth:  cfg.ImageMaxWidth,
		logger:         cfg.Logger,
	}, nil
}

// NewHandler returns the API routes wrapped in the standard middleware.
func NewHandler(cfg Config) (http.Handler, error) {
	s, err := newServer(cfg)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/api/health", http.HandlerFunc(s.health))
	mux.Handle("/upload_header_footer", http.HandlerFunc(s.uploadHeaderFooter))
	mux.Handle("/upload_excel", http.HandlerFunc(s.uploadSpreadsheet))
	mux.Handle("/generate_excel_labels", http.HandlerFunc(s.generateLabels))
	mux.Handle("/generate_manual_label", http.HandlerFunc(s.generateManualLabel))

	csp := strings.Join([]string{
		"default-src 'none'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.RequestLogger(s.logger),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	), nil
}

func Run(ctx context.Context, cfg Config) error {
	handler, err := NewHandler(cfg)
	if err != nil {
		return err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) uploadHeaderFooter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(s.maxUploadBytes + (2 << 20)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload form")
		return
	}

	paths := map[string]string{}
	for _, field := range []string{"header", "footer"} {
		raw, _, fileName, ok, err := parseOptionalUploadedFileWithField(r, field, s.maxUploadBytes, allowedImageMimes)
		if err != nil {
			writeError(w, http.StatusBadRequest, field+": "+err.Error())
			return
		}
		if !ok {
			paths[field] = ""
			continue
		}
		prepared, err := label.PrepareImage(bytes.NewReader(raw), s.imageMaxWidth)
		if err != nil {
			writeError(w, http.StatusBadRequest, field+": unable to decode image")
			return
		}
		stored := strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".png"
		path, err := s.store.SaveUpload(storage.KindImage, stored, prepared)
		if err != nil {
			s.logger.Error("store image", zap.String("field", field), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "unable to store image")
			return
		}
		paths[field] = path
	}
	if paths["header"] == "" && paths["footer"] == "" {
		writeError(w, http.StatusBadRequest, "header or footer image is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"header_path": paths["header"],
		"footer_path": paths["footer"],
	})
}

func (s *server) uploadSpreadsheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, _, fileName, err := parseUploadedFileWithField(r, "excel_file", s.maxUploadBytes, nil, "spreadsheet file is required")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := orders.ReadTable(bytes.NewReader(raw), fileName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read spreadsheet: "+err.Error())
		return
	}
	grouper, err := orders.NewGrouper(table, s.fill)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	invoices := grouper.Invoices()
	if len(invoices) == 0 {
		writeError(w, http.StatusBadRequest, "spreadsheet has no invoices")
		return
	}

	path, err := s.store.SaveUpload(storage.KindSpreadsheet, fileName, raw)
	if err != nil {
		s.logger.Error("store spreadsheet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unable to store spreadsheet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":     path,
		"invoices": invoices,
	})
}

func (s *server) generateLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req generateLabelsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		writeError(w, http.StatusBadRequest, orders.ErrMissingFile.Error()+": file_path is required")
		return
	}
	if strings.TrimSpace(req.StartInvoice) == "" || strings.TrimSpace(req.EndInvoice) == "" {
		writeError(w, http.StatusBadRequest, "start_invoice and end_invoice are required")
		return
	}

	sheetPath, err := s.store.Resolve(req.FilePath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	layout, err := s.layoutFor(req.HeaderFile, req.FooterFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grouper, err := s.loadGrouper(sheetPath)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	job, err := s.store.NewJob()
	if err != nil {
		s.logger.Error("create job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unable to prepare output")
		return
	}
	defer s.removeJob(job)

	gen := batch.NewGenerator(layout, s.logger.With(zap.String("job", job.ID)))
	result, err := gen.Generate(grouper, req.StartInvoice, req.EndInvoice, job.Dir)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}
	serveFile(w, result.ArchivePath, "application/zip", batch.ArchiveName)
}

func (s *server) generateManualLabel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req manualLabelRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := req.ManualEntry.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	layout, err := s.layoutFor(req.HeaderFile, req.FooterFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grouper, err := orders.NewGrouper(orders.ManualTable(req.ManualEntry), orders.DefaultFill)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	invoice := strings.TrimSpace(req.Invoice)

	job, err := s.store.NewJob()
	if err != nil {
		s.logger.Error("create job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unable to prepare output")
		return
	}
	defer s.removeJob(job)

	gen := batch.NewGenerator(layout, s.logger.With(zap.String("job", job.ID)))
	result, err := gen.Generate(grouper, invoice, invoice, job.Dir)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}
	doc := result.Documents[0]
	serveFile(w, doc.Path, "application/pdf", doc.Name)
}

func (s *server) layoutFor(header, footer string) (label.Layout, error) {
	headerPath, err := s.store.Resolve(header)
	if err != nil {
		return label.Layout{}, err
	}
	footerPath, err := s.store.Resolve(footer)
	if err != nil {
		return label.Layout{}, err
	}
	return s.layout.WithImages(headerPath, footerPath), nil
}

func (s *server) loadGrouper(path string) (*orders.Grouper, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", orders.ErrMissingFile, filepath.Base(path))
		}
		return nil, err
	}
	defer f.Close()

	table, err := orders.ReadTable(f, path)
	if err != nil {
		return nil, err
	}
	return orders.NewGrouper(table, s.fill)
}

func (s *server) removeJob(job *storage.Job) {
	if err := job.Remove(); err != nil {
		s.logger.Warn("remove job directory", zap.String("job", job.ID), zap.Error(err))
	}
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, orders.ErrMissingFile),
		errors.Is(err, orders.ErrMissingColumn),
		errors.Is(err, orders.ErrInvalidRange),
		errors.Is(err, storage.ErrOutsideStorage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, batch.ErrNoLabels):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, batch.ErrRenderFailure):
		return http.StatusInternalServerError, "unable to render labels"
	case errors.Is(err, batch.ErrPackagingFailure):
		return http.StatusInternalServerError, "unable to package labels"
	default:
		return http.StatusBadRequest, err.Error()
	}
}

func serveFile(w http.ResponseWriter, path, contentType, downloadName string) {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to open generated file")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", security.ArchiveName(downloadName)))
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprint(info.Size()))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

func parseUploadedFileWithField(r *http.Request, fieldName string, maxBytes int64, allowedMimes []string, requiredMessage string) ([]byte, string, string, error) {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if err := r.ParseMultipartForm(maxBytes + (2 << 20)); err != nil {
		return nil, "", "", errors.New("invalid upload form")
	}
	file, header, err := r.FormFile(fieldName)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %s", orders.ErrMissingFile, requiredMessage)
	}
	defer file.Close()
	raw, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return nil, "", "", errors.New("unable to read uploaded file")
	}
	if len(raw) == 0 {
		return nil, "", "", errors.New("uploaded file is empty")
	}
	detected := http.DetectContentType(raw)
	if len(allowedMimes) > 0 && !mimeAllowed(allowedMimes, detected) {
		return nil, "", "", errors.New("unsupported file type")
	}
	fileName := strings.TrimSpace(header.Filename)
	if fileName == "" {
		fileName = fieldName + ".xlsx"
	}
	return raw, detected, fileName, nil
}

func parseOptionalUploadedFileWithField(r *http.Request, fieldName string, maxBytes int64, allowedMimes []string) ([]byte, string, string, bool, error) {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	file, header, err := r.FormFile(fieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", "", false, nil
		}
		return nil, "", "", false, errors.New("invalid uploaded file")
	}
	defer file.Close()
	raw, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return nil, "", "", false, errors.New("unable to read uploaded file")
	}
	if len(raw) == 0 {
		return nil, "", "", false, nil
	}
	detected := http.DetectContentType(raw)
	if len(allowedMimes) > 0 && !mimeAllowed(allowedMimes, detected) {
		return nil, "", "", false, errors.New("unsupported file type")
	}
	fileName := strings.TrimSpace(header.Filename)
	if fileName == "" {
		fileName = fieldName + ".png"
	}
	return raw, detected, fileName, true, nil
}

func mimeAllowed(allowed []string, detected string) bool {
	for _, mime := range allowed {
		if strings.EqualFold(strings.TrimSpace(mime), detected) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
