package clientapp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phillip-england/shiplabel/internal/middleware"
)

type Config struct {
	Addr         string
	APIBaseURL   string
	Title        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

type pageData struct {
	Title string
}

//go:embed templates/index.html
var templatesFS embed.FS

// proxiedRoutes are forwarded verbatim to the API.
var proxiedRoutes = []string{
	"/api/",
	"/upload_header_footer",
	"/upload_excel",
	"/generate_excel_labels",
	"/generate_manual_label",
}

type server struct {
	title     string
	indexTmpl *template.Template
	proxy     *httputil.ReverseProxy
	logger    *zap.Logger
}

func NewHandler(cfg Config) (http.Handler, error) {
	target, err := url.Parse(strings.TrimRight(cfg.APIBaseURL, "/"))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.APIBaseURL)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	title := cfg.Title
	if title == "" {
		title = "Label Generator"
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("api proxy failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "label service unavailable", http.StatusBadGateway)
	}

	s := &server{
		title:     title,
		indexTmpl: template.Must(template.ParseFS(templatesFS, "templates/index.html")),
		proxy:     proxy,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.indexPage))
	for _, route := range proxiedRoutes {
		mux.Handle(route, s.proxy)
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.RequestLogger(logger),
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
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("client listening", zap.String("url", "http://localhost"+cfg.Addr))
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

func (s *server) indexPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var buf bytes.Buffer
	if err := s.indexTmpl.Execute(&buf, pageData{Title: s.title}); err != nil {
		s.logger.Error("render index", zap.Error(err))
		http.Error(w, "template render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
