// Package pdfmerge concatenates PDF documents with pdfcpu.
package pdfmerge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/docbot/docbot/pkg/logger"
)

var (
	// ErrEncryptedPDF matches any *EncryptedPDFError.
	ErrEncryptedPDF = errors.New("encrypted PDF")
	ErrTooFewInputs = errors.New("at least two PDFs are required")
	ErrEmptyOutput  = errors.New("merge produced no output")
)

// EncryptedPDFError reports a password-protected source document.
type EncryptedPDFError struct {
	Name string
}

func (e *EncryptedPDFError) Error() string {
	if e.Name == "" {
		return "cannot merge password-protected PDF"
	}
	return fmt.Sprintf("cannot merge password-protected PDF %q", e.Name)
}

func (e *EncryptedPDFError) Is(target error) bool {
	return target == ErrEncryptedPDF
}

// Input is one source document.
type Input struct {
	Name string
	Data []byte
}

// Merger merges documents in the given order.
type Merger interface {
	Merge(ctx context.Context, inputs []Input) ([]byte, error)
}

// PDFCPU merges with the pdfcpu library.
type PDFCPU struct {
	log *logger.Logger
}

// NewPDFCPU creates a pdfcpu merger.
func NewPDFCPU(log *logger.Logger) *PDFCPU {
	return &PDFCPU{log: log}
}

// Merge validates every input, then concatenates them. Source order and the
// page order inside each source are preserved.
func (m *PDFCPU) Merge(ctx context.Context, inputs []Input) ([]byte, error) {
	if len(inputs) < 2 {
		return nil, ErrTooFewInputs
	}

	conf := model.NewDefaultConfiguration()
	readers := make([]io.ReadSeeker, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pdfCtx, err := api.ReadContext(bytes.NewReader(in.Data), conf)
		if err != nil {
			if isEncryption(err) {
				return nil, &EncryptedPDFError{Name: in.Name}
			}
			return nil, fmt.Errorf("failed to read %q: %w", in.Name, err)
		}
		if pdfCtx.Encrypt != nil {
			return nil, &EncryptedPDFError{Name: in.Name}
		}

		readers = append(readers, bytes.NewReader(in.Data))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, conf); err != nil {
		if isEncryption(err) {
			return nil, &EncryptedPDFError{}
		}
		return nil, fmt.Errorf("failed to merge: %w", err)
	}
	if out.Len() == 0 {
		return nil, ErrEmptyOutput
	}

	m.log.Debug("PDFs merged", zap.Int("inputs", len(inputs)), zap.Int("bytes", out.Len()))
	return out.Bytes(), nil
}

func isEncryption(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}
