package ocr

import "context"

// TextRecognizer is the OCR collaborator the pipeline consumes: document
// bytes in, plain text out. Failures surface as invalid input before the
// extraction pipeline runs; they are not retried inside the core.
type TextRecognizer interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}
