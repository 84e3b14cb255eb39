package server

import (
	"encoding/json"
	"net/http"

	"github.com/ledgerlens/bill-extractor/internal/extract"
	"github.com/ledgerlens/bill-extractor/internal/ocr"
)

// ExtractRequest is the inbound shape for pre-OCRed text.
type ExtractRequest struct {
	Text  string `json:"text"`
	Lang  string `json:"lang,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

// ExtractDocumentRequest carries a document URL for the OCR collaborator.
type ExtractDocumentRequest struct {
	URL   string `json:"url"`
	Lang  string `json:"lang,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json: " + err.Error()})
		return
	}

	res, err := s.extractor.Extract(r.Context(),
		extract.BillText{Text: req.Text, Lang: req.Lang},
		extract.Options{Debug: req.Debug},
	)
	if err != nil {
		s.logger.Warn("http.extract.failed", "status", statusFor(err), "error", err)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExtractDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.recognizer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "document recognition is not configured"})
		return
	}
	var req ExtractDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json: " + err.Error()})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}

	data, mimeType, err := ocr.FetchDocument(r.Context(), s.fetch, req.URL, int64(s.maxDocMB)<<20)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	text, err := s.recognizer.Recognize(r.Context(), data, mimeType)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	res, err := s.extractor.Extract(r.Context(),
		extract.BillText{Text: text, Lang: req.Lang},
		extract.Options{Debug: req.Debug},
	)
	if err != nil {
		s.logger.Warn("http.extract_document.failed", "status", statusFor(err), "error", err)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
