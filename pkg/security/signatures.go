package security

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// DocumentInfo summarizes structural checks on an uploaded PDF.
type DocumentInfo struct {
	IsPDF          bool
	SignatureCount int
}

// Validator checks uploaded documents before they are stored.
type Validator interface {
	ValidatePDF(ctx context.Context, doc io.Reader) (*DocumentInfo, error)
}

type pdfValidator struct{}

func NewValidator() Validator {
	return &pdfValidator{}
}

// ValidatePDF verifies the PDF header and trailer and counts embedded
// signature dictionaries. It does not verify certificate chains.
func (v *pdfValidator) ValidatePDF(ctx context.Context, doc io.Reader) (*DocumentInfo, error) {
	data, err := io.ReadAll(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("document is not a PDF")
	}
	if !bytes.Contains(data, []byte("%%EOF")) {
		return nil, fmt.Errorf("PDF is truncated")
	}

	return &DocumentInfo{
		IsPDF:          true,
		SignatureCount: bytes.Count(data, []byte("/Type /Sig")) + bytes.Count(data, []byte("/Type/Sig")),
	}, nil
}
