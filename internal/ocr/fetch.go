package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerlens/bill-extractor/internal/common"
)

// DefaultMaxDocumentBytes caps downloaded document size.
const DefaultMaxDocumentBytes = 20 << 20

// FetchDocument downloads a bill document by URL and type-gates it to images
// and PDFs. Any failure here is the caller's fault (bad URL, unreachable
// host, wrong content type) and maps to ErrInvalidInput.
func FetchDocument(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, string, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", common.NewAppError("OCR_FETCH", "bad document url", common.ErrInvalidInput)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", common.NewAppError("OCR_FETCH", fmt.Sprintf("document download failed: %v", err), common.ErrInvalidInput)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return nil, "", common.NewAppError("OCR_FETCH",
			fmt.Sprintf("document download failed: status %d", resp.StatusCode), common.ErrInvalidInput)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if !strings.HasPrefix(mimeType, "image/") && mimeType != "application/pdf" {
		return nil, "", common.NewAppError("OCR_FETCH",
			"unsupported document type: "+mimeType, common.ErrInvalidInput)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", common.NewAppError("OCR_FETCH", "reading document body", common.ErrInvalidInput)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", common.NewAppError("OCR_FETCH", "document exceeds size limit", common.ErrInvalidInput)
	}
	return data, mimeType, nil
}
