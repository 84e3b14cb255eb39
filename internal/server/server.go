// Package server exposes the extraction pipeline over plain HTTP. Transport
// concerns stay here: the pipeline itself only ever sees BillText.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlens/bill-extractor/internal/common"
	"github.com/ledgerlens/bill-extractor/internal/extract"
	"github.com/ledgerlens/bill-extractor/internal/ocr"
)

type Server struct {
	extractor  *extract.Extractor
	recognizer ocr.TextRecognizer // nil disables document extraction
	fetch      *http.Client
	maxDocMB   int
	logger     *slog.Logger
}

func New(extractor *extract.Extractor, recognizer ocr.TextRecognizer, cfg common.OCRConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	maxDocMB := cfg.MaxDocumentMB
	if maxDocMB <= 0 {
		maxDocMB = 20
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Server{
		extractor:  extractor,
		recognizer: recognizer,
		fetch:      &http.Client{Timeout: fetchTimeout},
		maxDocMB:   maxDocMB,
		logger:     logger,
	}
}

// Routes returns the HTTP handler for the service.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/extract", s.handleExtract)
	mux.HandleFunc("/v1/extract-document", s.handleExtractDocument)
	return s.withRequestID(mux)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), rid)))
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains.
func ListenAndServe(ctx context.Context, cfg common.ServerConfig, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http.listen", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("http.shutdown")
		return srv.Shutdown(shutdownCtx)
	}
}
