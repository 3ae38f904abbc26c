package pdfmerge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbot/docbot/pkg/logger"
)

// minimalPDF builds a valid PDF with the given number of blank pages.
func minimalPDF(pages int) []byte {
	widths := make([]int, pages)
	for i := range widths {
		widths[i] = 200
	}
	return sizedPDF(widths...)
}

// sizedPDF builds a PDF with one blank page per width, in order.
func sizedPDF(widths ...int) []byte {
	pages := len(widths)
	var objs []string
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		objs = append(objs, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 200] >>", widths[i]))
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestMergeConcatenatesPages(t *testing.T) {
	m := NewPDFCPU(logger.NewNop())

	out, err := m.Merge(context.Background(), []Input{
		{Name: "a.pdf", Data: minimalPDF(2)},
		{Name: "b.pdf", Data: minimalPDF(3)},
	})
	require.NoError(t, err)

	n, err := api.PageCount(bytes.NewReader(out), model.NewDefaultConfiguration())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMergeKeepsSourceAndPageOrder(t *testing.T) {
	m := NewPDFCPU(logger.NewNop())

	out, err := m.Merge(context.Background(), []Input{
		{Name: "a.pdf", Data: sizedPDF(111, 111)},
		{Name: "b.pdf", Data: sizedPDF(222)},
		{Name: "c.pdf", Data: sizedPDF(333)},
	})
	require.NoError(t, err)

	dims, err := api.PageDims(bytes.NewReader(out), model.NewDefaultConfiguration())
	require.NoError(t, err)
	widths := make([]int, len(dims))
	for i, d := range dims {
		widths[i] = int(d.Width)
	}
	assert.Equal(t, []int{111, 111, 222, 333}, widths)
}

func encryptedPDF(t *testing.T, userPW, ownerPW string) []byte {
	t.Helper()
	var out bytes.Buffer
	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	require.NoError(t, api.Encrypt(bytes.NewReader(minimalPDF(1)), &out, conf))
	return out.Bytes()
}

func TestMergeDetectsEncryptedInputs(t *testing.T) {
	tests := []struct {
		name    string
		userPW  string
		ownerPW string
	}{
		{name: "user password", userPW: "open-sesame", ownerPW: "owner"},
		{name: "owner password only", userPW: "", ownerPW: "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPDFCPU(logger.NewNop())

			_, err := m.Merge(context.Background(), []Input{
				{Name: "plain.pdf", Data: minimalPDF(1)},
				{Name: "locked.pdf", Data: encryptedPDF(t, tt.userPW, tt.ownerPW)},
			})

			var encErr *EncryptedPDFError
			require.True(t, errors.As(err, &encErr), "got %v", err)
			assert.Equal(t, "locked.pdf", encErr.Name)
		})
	}
}

func TestMergeRequiresTwoInputs(t *testing.T) {
	m := NewPDFCPU(logger.NewNop())

	_, err := m.Merge(context.Background(), []Input{{Name: "a.pdf", Data: minimalPDF(1)}})

	assert.ErrorIs(t, err, ErrTooFewInputs)
}

func TestMergeRejectsGarbage(t *testing.T) {
	m := NewPDFCPU(logger.NewNop())

	_, err := m.Merge(context.Background(), []Input{
		{Name: "a.pdf", Data: minimalPDF(1)},
		{Name: "b.pdf", Data: []byte("not a pdf")},
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEncryptedPDF))
	assert.Contains(t, err.Error(), "b.pdf")
}

func TestEncryptedPDFErrorMatchesSentinel(t *testing.T) {
	var err error = fmt.Errorf("merge: %w", &EncryptedPDFError{Name: "secret.pdf"})

	assert.ErrorIs(t, err, ErrEncryptedPDF)
	var target *EncryptedPDFError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "secret.pdf", target.Name)
}

func TestIsEncryption(t *testing.T) {
	assert.True(t, isEncryption(errors.New("pdfcpu: please provide the correct password")))
	assert.True(t, isEncryption(errors.New("encrypt dictionary missing")))
	assert.False(t, isEncryption(errors.New("xref corrupt")))
}
