// Package convert converts documents between PDF and Word with a headless
// LibreOffice (soffice) subprocess.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docbot/docbot/pkg/logger"
)

var (
	ErrConverterMissing  = errors.New("converter missing: LibreOffice (soffice) is not installed or not on PATH")
	ErrConversionTimeout = errors.New("conversion timed out")
	ErrEmptyOutput       = errors.New("conversion produced no output")
	ErrUnknownDirection  = errors.New("unknown conversion direction")
)

// ExitError is a non-zero soffice exit.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("libreoffice failed with exit code %d: %s", e.Code, e.Stderr)
}

// Direction is a conversion direction.
type Direction string

const (
	PDFToWord Direction = "pdf_to_word"
	WordToPDF Direction = "word_to_pdf"
)

// targetExt returns the soffice output extension for d.
func (d Direction) targetExt() (string, bool) {
	switch d {
	case PDFToWord:
		return "docx", true
	case WordToPDF:
		return "pdf", true
	default:
		return "", false
	}
}

// Result is a converted document.
type Result struct {
	Name string
	Data []byte
}

// Converter converts one document.
type Converter interface {
	Convert(ctx context.Context, dir Direction, data []byte, name string) (*Result, error)
}

const (
	maxStderr = 2000
	waitDelay = 2 * time.Second
)

// Soffice runs LibreOffice in headless mode.
type Soffice struct {
	binary  string
	timeout time.Duration
	log     *logger.Logger
}

// NewSoffice creates a converter. binary defaults to "soffice".
func NewSoffice(binary string, timeout time.Duration, log *logger.Logger) *Soffice {
	if binary == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	return &Soffice{binary: binary, timeout: timeout, log: log}
}

// Convert writes data to a scratch directory, runs soffice on it and returns
// the output named after the original file with the target extension.
func (s *Soffice) Convert(ctx context.Context, dir Direction, data []byte, name string) (*Result, error) {
	outExt, ok := dir.targetExt()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
	}

	tmp, err := os.MkdirTemp("", "docbot-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	inExt := strings.TrimPrefix(filepath.Ext(name), ".")
	if inExt == "" {
		inExt = "bin"
	}
	inputPath := filepath.Join(tmp, "input."+strings.ToLower(inExt))
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	s.log.Debug("LibreOffice start",
		zap.String("direction", string(dir)),
		zap.String("input_ext", inExt),
		zap.String("output_ext", outExt),
	)

	if err := s.run(ctx, tmp, inputPath, outExt); err != nil {
		return nil, err
	}

	out, err := os.ReadFile(filepath.Join(tmp, "input."+outExt))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrEmptyOutput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}

	return &Result{Name: OutputName(name, outExt), Data: out}, nil
}

func (s *Soffice) run(ctx context.Context, workDir, inputPath, outExt string) error {
	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []string{
		// Private profile so concurrent conversions do not share a lock.
		"-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(workDir, "profile")),
		"--headless",
		"--nologo",
		"--nolockcheck",
		"--nodefault",
		"--norestore",
		"--invisible",
		"--convert-to", outExt,
		"--outdir", workDir,
		inputPath,
	}

	cmd := exec.CommandContext(execCtx, s.binary, args...)
	cmd.Dir = workDir
	killGroup(cmd)
	// Bounds the wait for stderr if a stray child still holds it open.
	cmd.WaitDelay = waitDelay
	var stderr tailBuffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		s.log.Debug("LibreOffice finished", zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrConversionTimeout, s.timeout)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return ErrConverterMissing
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("failed to run soffice: %w", err)
}

// OutputName replaces the extension of name with ext.
func OutputName(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "file"
	}
	return base + "." + ext
}

// tailBuffer keeps the last maxStderr bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if over := t.buf.Len() - maxStderr; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}
