package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/bill-extractor/internal/common"
)

func TestFetchDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bill.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-bytes"))
		case "/bill.pdf":
			w.Header().Set("Content-Type", "application/pdf; charset=binary")
			_, _ = w.Write([]byte("pdf-bytes"))
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	t.Run("image is accepted", func(t *testing.T) {
		data, mime, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/bill.jpg", 0)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mime)
		assert.Equal(t, []byte("jpeg-bytes"), data)
	})

	t.Run("pdf content type parameters are stripped", func(t *testing.T) {
		_, mime, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/bill.pdf", 0)
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", mime)
	})

	t.Run("unsupported type is invalid input", func(t *testing.T) {
		_, _, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/page.html", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("missing document is invalid input", func(t *testing.T) {
		_, _, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/nope.jpg", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("oversized document is rejected", func(t *testing.T) {
		_, _, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/bill.jpg", 4)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}
