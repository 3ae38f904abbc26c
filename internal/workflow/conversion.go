package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/convert"
	"github.com/docbot/docbot/internal/llm"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/internal/session"
	"github.com/docbot/docbot/internal/stats"
	"github.com/docbot/docbot/pkg/logger"
	"github.com/docbot/docbot/pkg/metrics"
	"github.com/docbot/docbot/pkg/tracing"
)

// conversionSpec describes one conversion direction.
type conversionSpec struct {
	direction  convert.Direction
	accepts    []string
	received   string
	wrongType  string
	failed     string
	what       string
	successTag string
}

var conversions = map[session.Mode]conversionSpec{
	session.ModePDFToWord: {
		direction:  convert.PDFToWord,
		accepts:    []string{".pdf"},
		received:   msgReceivedPDF,
		wrongType:  msgWrongTypePDFToWord,
		failed:     msgConvertFailedPDF,
		what:       "PDF to Word conversion",
		successTag: "converted_pdf_to_word",
	},
	session.ModeWordToPDF: {
		direction:  convert.WordToPDF,
		accepts:    []string{".doc", ".docx"},
		received:   msgReceivedWord,
		wrongType:  msgWrongTypeWordToPDF,
		failed:     msgConvertFailedWord,
		what:       "Word to PDF conversion",
		successTag: "converted_word_to_pdf",
	},
}

// ErrNotConversionMode is returned when Handle runs outside a conversion mode.
var ErrNotConversionMode = errors.New("session is not in a conversion mode")

// Conversion runs the single-document pipeline:
// validate, download, convert, upload, report.
type Conversion struct {
	resp      *Responder
	converter convert.Converter
	apology   apologizer
	counters  *stats.Counters
	jobs      JobPublisher
	opts      Options
	log       *logger.Logger
}

// NewConversion creates the conversion workflow.
func NewConversion(resp *Responder, converter convert.Converter, ai llm.Client, counters *stats.Counters, jobs JobPublisher, opts Options, log *logger.Logger) *Conversion {
	if jobs == nil {
		jobs = NopPublisher{}
	}
	return &Conversion{
		resp:      resp,
		converter: converter,
		apology:   apologizer{ai: ai, log: log},
		counters:  counters,
		jobs:      jobs,
		opts:      opts,
		log:       log,
	}
}

// Accepts reports whether name has an extension valid for mode.
func Accepts(mode session.Mode, name string) bool {
	spec, ok := conversions[mode]
	if !ok {
		if mode == session.ModeMergePDFs {
			return chat.Extension(name) == ".pdf"
		}
		return false
	}
	ext := chat.Extension(name)
	for _, a := range spec.accepts {
		if ext == a {
			return true
		}
	}
	return false
}

// Handle converts doc according to the session's mode. Validation failures are
// answered and return nil. The session mode is never cleared.
func (c *Conversion) Handle(ctx context.Context, key chat.ConversationKey, sess *session.Session, doc chat.Document) error {
	spec, ok := conversions[sess.Mode]
	if !ok {
		return ErrNotConversionMode
	}

	if !Accepts(sess.Mode, doc.FileName) {
		return c.resp.Reply(ctx, key, spec.wrongType, chat.KeyboardNone)
	}
	if tooLarge(doc, c.opts.MaxFileBytes) {
		sess.LastAction = "rejected_too_large"
		return c.resp.Reply(ctx, key, TooLargeMessage(c.opts.MaxFileBytes), chat.KeyboardNone)
	}

	if err := c.resp.Reply(ctx, key, spec.received, chat.KeyboardNone); err != nil {
		return err
	}

	ctx, span := tracing.Tracer("docbot/workflow").Start(ctx, "workflow.Convert")
	defer span.End()
	span.SetAttributes(
		attribute.String("direction", string(spec.direction)),
		attribute.Int64("declared_size", doc.Size),
	)

	log := c.log.WithConversation(key.Platform, key.UserID, key.ChatID)
	log.Info("Conversion start",
		zap.String("direction", string(spec.direction)),
		zap.String("file_name", doc.FileName),
		zap.Int64("size", doc.Size),
	)

	start := time.Now()
	progress := c.resp.StartProgress(ctx, key, msgDownloading)
	result, err := c.run(ctx, key, spec, doc, progress)

	event := &model.JobEvent{
		ID:         uuid.NewString(),
		Platform:   key.Platform,
		UserID:     key.UserID,
		ChatID:     key.ChatID,
		Kind:       model.JobKindConvert,
		Direction:  string(spec.direction),
		Inputs:     1,
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	if err != nil {
		kind := Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		log.Error("Conversion failed", zap.Error(err), zap.String("failure_kind", string(kind)))

		progress.Update(ctx, spec.failed)
		msg := c.apology.message(ctx, key.Platform, spec.what, kind, msgConvertApology)
		sess.LastAction = "convert_failed"

		metrics.RecordJob(string(model.JobKindConvert), string(model.JobStatusFailed), time.Since(start).Seconds())
		event.Status = model.JobStatusFailed
		event.FailureKind = string(kind)
		c.jobs.PublishJob(ctx, event)

		return c.resp.Reply(ctx, key, msg, chat.KeyboardNone)
	}

	c.counters.IncConversions()
	sess.LastAction = spec.successTag

	log.Info("Conversion success", zap.String("output", result.Name), zap.Int("bytes", len(result.Data)))
	metrics.RecordJob(string(model.JobKindConvert), string(model.JobStatusSucceeded), time.Since(start).Seconds())
	event.Status = model.JobStatusSucceeded
	event.OutputName = result.Name
	event.OutputBytes = len(result.Data)
	c.jobs.PublishJob(ctx, event)
	return nil
}

func (c *Conversion) run(ctx context.Context, key chat.ConversationKey, spec conversionSpec, doc chat.Document, progress *Progress) (*convert.Result, error) {
	data, err := c.resp.Messenger().Download(ctx, doc.FileRef, c.opts.MaxFileBytes)
	if err != nil {
		return nil, inStage(stageDownload, err)
	}

	progress.Update(ctx, msgProcessing)
	result, err := c.converter.Convert(ctx, spec.direction, data, doc.FileName)
	if err != nil {
		return nil, inStage(stageProcess, err)
	}

	progress.Update(ctx, msgUploading)
	if err := c.resp.Messenger().SendDocument(ctx, key.ChatID, result.Name, result.Data); err != nil {
		return nil, inStage(stageUpload, err)
	}

	progress.Update(ctx, msgDone)
	return result, nil
}

// tooLarge reports whether the declared size exceeds max. Unknown sizes (0)
// pass and are enforced by the download limit instead.
func tooLarge(doc chat.Document, max int64) bool {
	return max > 0 && doc.Size > max
}
