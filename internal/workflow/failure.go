package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/convert"
	"github.com/docbot/docbot/internal/llm"
	"github.com/docbot/docbot/internal/pdfmerge"
	"github.com/docbot/docbot/pkg/logger"
)

// FailureKind is the user-safe classification of a job failure.
type FailureKind string

const (
	FailureDownload         FailureKind = "download"
	FailureTooLarge         FailureKind = "too_large"
	FailureConverterMissing FailureKind = "converter_missing"
	FailureTimeout          FailureKind = "timeout"
	FailureBackend          FailureKind = "backend"
	FailureEmptyOutput      FailureKind = "empty_output"
	FailureEncrypted        FailureKind = "encrypted"
	FailureUpload           FailureKind = "upload"
	FailureUnknown          FailureKind = "unknown"
)

// stage tags the step a job failed in.
type stage string

const (
	stageDownload stage = "download"
	stageProcess  stage = "process"
	stageUpload   stage = "upload"
)

type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

func inStage(s stage, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: s, err: err}
}

// Classify maps any job error to a FailureKind.
func Classify(err error) FailureKind {
	var exitErr *convert.ExitError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chat.ErrFileTooLarge):
		return FailureTooLarge
	case errors.Is(err, pdfmerge.ErrEncryptedPDF):
		return FailureEncrypted
	case errors.Is(err, convert.ErrConverterMissing):
		return FailureConverterMissing
	case errors.Is(err, convert.ErrConversionTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, convert.ErrEmptyOutput), errors.Is(err, pdfmerge.ErrEmptyOutput):
		return FailureEmptyOutput
	case errors.As(err, &exitErr):
		return FailureBackend
	}

	var se *stageError
	if errors.As(err, &se) {
		switch se.stage {
		case stageDownload:
			return FailureDownload
		case stageProcess:
			return FailureBackend
		case stageUpload:
			return FailureUpload
		}
	}
	return FailureUnknown
}

func (k FailureKind) describe() string {
	switch k {
	case FailureDownload:
		return "the file could not be downloaded from the chat"
	case FailureTooLarge:
		return "the file is larger than the download limit"
	case FailureConverterMissing:
		return "the document converter is not available on the server"
	case FailureTimeout:
		return "processing took too long and was stopped"
	case FailureBackend:
		return "the document could not be processed, it may be damaged or unusual"
	case FailureEmptyOutput:
		return "processing produced an empty file"
	case FailureEncrypted:
		return "one of the PDFs is password-protected"
	case FailureUpload:
		return "the result could not be sent back"
	default:
		return "an unexpected error happened"
	}
}

const apologySystemPrompt = "You are a helpful Telegram bot. Write a short, friendly error message (1-2 lines) suggesting one next step. No markdown."

// apologizer writes the follow-up message after a failed job.
type apologizer struct {
	ai  llm.Client
	log *logger.Logger
}

// message asks the AI for a short apology. Only the failure kind is shared
// with the AI; fallback is returned when the call fails.
func (a apologizer) message(ctx context.Context, platform, what string, kind FailureKind, fallback string) string {
	if a.ai == nil {
		return fallback
	}

	resp, err := a.ai.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: apologySystemPrompt},
			{Role: "user", Content: what + " failed. Reason: " + kind.describe() + "."},
		},
		Meta: map[string]string{
			"platform": platform,
			"feature":  "error_copy",
		},
	})
	if err != nil {
		a.log.Debug("Apology generation failed", zap.Error(err))
		return fallback
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return fallback
	}
	return text
}
