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
	"github.com/docbot/docbot/internal/llm"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/internal/pdfmerge"
	"github.com/docbot/docbot/internal/session"
	"github.com/docbot/docbot/internal/stats"
	"github.com/docbot/docbot/pkg/logger"
	"github.com/docbot/docbot/pkg/metrics"
	"github.com/docbot/docbot/pkg/tracing"
)

// Merge accumulates PDFs on the session and merges them on request.
type Merge struct {
	resp     *Responder
	merger   pdfmerge.Merger
	apology  apologizer
	counters *stats.Counters
	jobs     JobPublisher
	opts     Options
	log      *logger.Logger
	now      func() time.Time
}

// NewMerge creates the merge workflow.
func NewMerge(resp *Responder, merger pdfmerge.Merger, ai llm.Client, counters *stats.Counters, jobs JobPublisher, opts Options, log *logger.Logger) *Merge {
	if jobs == nil {
		jobs = NopPublisher{}
	}
	return &Merge{
		resp:     resp,
		merger:   merger,
		apology:  apologizer{ai: ai, log: log},
		counters: counters,
		jobs:     jobs,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// Enqueue appends a PDF to the queue. Queuing commits the session to merge
// mode and disarms any pending confirmation.
func (m *Merge) Enqueue(ctx context.Context, key chat.ConversationKey, sess *session.Session, doc chat.Document) error {
	if !Accepts(session.ModeMergePDFs, doc.FileName) {
		return m.resp.Reply(ctx, key, msgWrongTypeMerge, chat.KeyboardNone)
	}
	if tooLarge(doc, m.opts.MaxFileBytes) {
		sess.LastAction = "rejected_too_large"
		return m.resp.Reply(ctx, key, TooLargeMessage(m.opts.MaxFileBytes), chat.KeyboardNone)
	}

	n := sess.Enqueue(session.QueuedFile{
		FileRef: doc.FileRef,
		Name:    doc.FileName,
		Size:    doc.Size,
		AddedAt: m.now(),
	})
	sess.LastAction = "merge_added"

	return m.resp.Reply(ctx, key, msgAdded(n), chat.KeyboardMerge)
}

// RemoveLast drops the most recently queued PDF.
func (m *Merge) RemoveLast(ctx context.Context, key chat.ConversationKey, sess *session.Session) error {
	msg := msgNothingToRemove
	if _, ok := sess.RemoveLast(); ok {
		msg = msgRemoved(sess.QueueLen())
	}
	sess.LastAction = "merge_remove_last"
	return m.resp.Reply(ctx, key, msg, chat.KeyboardMerge)
}

// Clear empties the queue.
func (m *Merge) Clear(ctx context.Context, key chat.ConversationKey, sess *session.Session) error {
	sess.ClearQueue()
	sess.LastAction = "merge_cleared"
	return m.resp.Reply(ctx, key, msgMergeCleared, chat.KeyboardMerge)
}

// Execute merges the queue. With requireConfirm the first call only arms
// the confirmation gate; the next call for the session performs the merge.
// On success the queue is emptied and the mode reset. On failure both are
// kept so the user can retry.
func (m *Merge) Execute(ctx context.Context, key chat.ConversationKey, sess *session.Session, requireConfirm bool) error {
	switch n := sess.QueueLen(); {
	case n == 0:
		return m.resp.Reply(ctx, key, msgMergeEmpty, chat.KeyboardMerge)
	case n == 1:
		return m.resp.Reply(ctx, key, msgMergeOne, chat.KeyboardMerge)
	case requireConfirm && !sess.ConfirmArmed(m.now(), m.opts.ConfirmTTL):
		sess.ArmConfirm(m.now())
		sess.LastAction = "merge_asked_confirm"
		return m.resp.Reply(ctx, key, msgConfirm(n), chat.KeyboardNone)
	}

	sess.DisarmConfirm()
	queue := sess.Queue()

	ctx, span := tracing.Tracer("docbot/workflow").Start(ctx, "workflow.Merge")
	defer span.End()
	span.SetAttributes(attribute.Int("inputs", len(queue)))

	log := m.log.WithConversation(key.Platform, key.UserID, key.ChatID)
	log.Info("Merge start", zap.Int("count", len(queue)))

	start := time.Now()
	progress := m.resp.StartProgress(ctx, key, msgDownloading)
	merged, err := m.run(ctx, key, queue, progress)

	event := &model.JobEvent{
		ID:         uuid.NewString(),
		Platform:   key.Platform,
		UserID:     key.UserID,
		ChatID:     key.ChatID,
		Kind:       model.JobKindMerge,
		Inputs:     len(queue),
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	if err != nil {
		kind := Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		log.Error("Merge failed", zap.Error(err), zap.String("failure_kind", string(kind)))

		metrics.RecordJob(string(model.JobKindMerge), string(model.JobStatusFailed), time.Since(start).Seconds())
		event.Status = model.JobStatusFailed
		event.FailureKind = string(kind)
		m.jobs.PublishJob(ctx, event)

		var encrypted *pdfmerge.EncryptedPDFError
		if errors.As(err, &encrypted) {
			progress.Update(ctx, msgMergeEncrypted)
			sess.LastAction = "merge_failed_encrypted"
			return m.resp.Reply(ctx, key, msgEncryptedDetail(encrypted.Name), chat.KeyboardMerge)
		}

		progress.Update(ctx, msgMergeFailed)
		msg := m.apology.message(ctx, key.Platform, "PDF merge", kind, msgMergeApology)
		sess.LastAction = "merge_failed"
		return m.resp.Reply(ctx, key, msg, chat.KeyboardNone)
	}

	sess.ClearQueue()
	sess.Mode = session.ModeNone
	sess.LastAction = "merged_pdfs"
	m.counters.IncMerges()

	log.Info("Merge success", zap.Int("bytes", len(merged)))
	metrics.RecordJob(string(model.JobKindMerge), string(model.JobStatusSucceeded), time.Since(start).Seconds())
	event.Status = model.JobStatusSucceeded
	event.OutputName = MergedFileName
	event.OutputBytes = len(merged)
	m.jobs.PublishJob(ctx, event)
	return nil
}

func (m *Merge) run(ctx context.Context, key chat.ConversationKey, queue []session.QueuedFile, progress *Progress) ([]byte, error) {
	inputs := make([]pdfmerge.Input, 0, len(queue))
	for _, f := range queue {
		data, err := m.resp.Messenger().Download(ctx, f.FileRef, m.opts.MaxFileBytes)
		if err != nil {
			return nil, inStage(stageDownload, err)
		}
		inputs = append(inputs, pdfmerge.Input{Name: f.Name, Data: data})
	}

	progress.Update(ctx, msgMerging)
	merged, err := m.merger.Merge(ctx, inputs)
	if err != nil {
		return nil, inStage(stageProcess, err)
	}

	progress.Update(ctx, msgUploading)
	if err := m.resp.Messenger().SendDocument(ctx, key.ChatID, MergedFileName, merged); err != nil {
		return nil, inStage(stageUpload, err)
	}

	progress.Update(ctx, msgDone)
	return merged, nil
}
