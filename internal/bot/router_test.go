package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/chat/chattest"
	"github.com/docbot/docbot/internal/convert"
	"github.com/docbot/docbot/internal/intent"
	"github.com/docbot/docbot/internal/llm"
	"github.com/docbot/docbot/internal/memory"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/internal/pdfmerge"
	"github.com/docbot/docbot/internal/session"
	"github.com/docbot/docbot/internal/stats"
	"github.com/docbot/docbot/internal/workflow"
	"github.com/docbot/docbot/pkg/logger"
)

var key = chat.ConversationKey{Platform: "telegram", UserID: "42", ChatID: "42"}

type stubConverter struct{ calls int }

func (c *stubConverter) Convert(_ context.Context, dir convert.Direction, data []byte, name string) (*convert.Result, error) {
	c.calls++
	ext := ".docx"
	if dir == convert.WordToPDF {
		ext = ".pdf"
	}
	return &convert.Result{Name: convert.OutputName(name, ext), Data: data}, nil
}

type stubMerger struct{ calls int }

func (m *stubMerger) Merge(_ context.Context, inputs []pdfmerge.Input) ([]byte, error) {
	m.calls++
	return []byte("merged"), nil
}

type stubClassifier struct {
	out   intent.Classified
	calls int
	seen  []model.Turn
}

func (c *stubClassifier) Classify(_ context.Context, _ string, history []model.Turn) intent.Classified {
	c.calls++
	c.seen = history
	return c.out
}

type failingAI struct{ calls atomic.Int32 }

func (a *failingAI) Name() string { return "failing" }

func (a *failingAI) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	a.calls.Add(1)
	return nil, errors.New("connection refused")
}

type fixture struct {
	router     *Router
	messenger  *chattest.Messenger
	memory     *memory.Adapter
	sessions   *session.Store
	classifier Classifier
	converter  *stubConverter
	merger     *stubMerger
	counters   *stats.Counters
}

func newFixture(t *testing.T, classifier Classifier) *fixture {
	t.Helper()
	log := logger.NewNop()
	f := &fixture{
		messenger:  chattest.NewMessenger(),
		memory:     memory.NewAdapter(nil, 50, log),
		sessions:   session.NewStore(time.Hour),
		classifier: classifier,
		converter:  &stubConverter{},
		merger:     &stubMerger{},
		counters:   stats.New(),
	}
	resp := workflow.NewResponder(f.messenger, f.memory, log)
	opts := workflow.Options{MaxFileBytes: 20 << 20, ConfirmTTL: 15 * time.Minute}
	ai := llm.Disabled("tests")
	f.router = NewRouter(Deps{
		Sessions:   f.sessions,
		Memory:     f.memory,
		Classifier: classifier,
		Responder:  resp,
		Conversion: workflow.NewConversion(resp, f.converter, ai, f.counters, nil, opts, log),
		Merge:      workflow.NewMerge(resp, f.merger, ai, f.counters, nil, opts, log),
		Counters:   f.counters,
	}, Options{AdminUserID: "1", MaxFileMB: 20, HistoryTurns: 16}, log)
	return f
}

func (f *fixture) text(s string) {
	f.router.Handle(context.Background(), chat.Event{Key: key, Private: true, Text: s})
}

func (f *fixture) command(name string) {
	f.router.Handle(context.Background(), chat.Event{Key: key, Private: true, Text: "/" + name, Command: name})
}

func (f *fixture) document(name string) {
	f.messenger.Files[name] = []byte("content of " + name)
	f.router.Handle(context.Background(), chat.Event{
		Key:      key,
		Private:  true,
		Document: &chat.Document{FileRef: name, FileName: name, Size: int64(len("content of " + name))},
	})
}

func (f *fixture) press(data string) {
	f.router.Handle(context.Background(), chat.Event{Key: key, Private: true, Callback: data, CallbackID: "cb-" + data})
}

func (f *fixture) session() *session.Session {
	return f.sessions.Get(key)
}

func TestDocumentInfersWordToPDF(t *testing.T) {
	f := newFixture(t, &stubClassifier{})

	f.document("report.docx")

	assert.Equal(t, session.ModeWordToPDF, f.session().Mode)
	assert.Equal(t, "converted_word_to_pdf", f.session().LastAction)
	assert.Equal(t, 1, f.converter.calls)
	require.Len(t, f.messenger.Documents, 1)
	assert.Equal(t, "report.pdf", f.messenger.Documents[0].Name)
}

func TestDocumentWithoutModeOrInferenceAsks(t *testing.T) {
	f := newFixture(t, &stubClassifier{})

	f.document("photo.png")

	assert.Equal(t, msgAskForMode, f.messenger.LastText())
	assert.Equal(t, chat.KeyboardMain, f.messenger.LastKeyboard())
	assert.Equal(t, session.ModeNone, f.session().Mode)
	assert.Equal(t, "asked_for_mode", f.session().LastAction)
	assert.Zero(t, f.converter.calls)
}

func TestMediaPromptsForDocument(t *testing.T) {
	f := newFixture(t, &stubClassifier{})

	f.router.Handle(context.Background(), chat.Event{Key: key, Private: true, Media: chat.MediaPhoto})

	assert.Equal(t, []string{msgSendAsFile}, f.messenger.Texts())
	assert.Equal(t, session.ModeNone, f.session().Mode)
}

func TestAIFailureFallsBackToGenericPrompt(t *testing.T) {
	ai := &failingAI{}
	client := llm.NewRetryClient(ai, llm.RetryOptions{MaxRetries: 2, InitialInterval: time.Millisecond}, logger.NewNop())
	f := newFixture(t, intent.NewClassifier(client, "telegram", logger.NewNop()))

	f.text("please help")

	assert.Equal(t, int32(3), ai.calls.Load())
	assert.Equal(t, []string{msgGeneric}, f.messenger.Texts())
	assert.Equal(t, chat.KeyboardMain, f.messenger.LastKeyboard())
}

func TestMergeKeywordsBypassClassifier(t *testing.T) {
	classifier := &stubClassifier{out: intent.Classified{Intent: intent.Unknown}}
	f := newFixture(t, classifier)

	f.press(chat.CallbackModeMergePDFs)
	f.document("a.pdf")
	f.document("b.pdf")
	f.text("  Merge Now ")

	assert.Equal(t, "You have 2 PDFs queued. Reply with yes to confirm merging, or send clear to start over.", f.messenger.LastText())
	assert.Zero(t, f.merger.calls)

	f.text("YES")

	assert.Equal(t, 1, f.merger.calls)
	assert.Zero(t, classifier.calls)
	assert.Equal(t, session.ModeNone, f.session().Mode)
	assert.Zero(t, f.session().QueueLen())
	assert.Equal(t, int64(1), f.counters.Snapshot().MergesCompleted)
}

func TestMergeKeywordsOutsideMergeModeAreClassified(t *testing.T) {
	classifier := &stubClassifier{out: intent.Classified{Intent: intent.Unknown, Reply: "What would you like to do?"}}
	f := newFixture(t, classifier)

	f.text("yes")

	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, "What would you like to do?", f.messenger.LastText())
}

func TestMergeButtonsRequireConfirmation(t *testing.T) {
	f := newFixture(t, &stubClassifier{})

	f.press(chat.CallbackModeMergePDFs)
	f.document("b.pdf")
	f.document("c.pdf")
	f.press(chat.CallbackMergeRemove)
	assert.Equal(t, 1, f.session().QueueLen())

	f.document("c.pdf")
	f.press(chat.CallbackMergeNow)
	assert.Zero(t, f.merger.calls)
	f.press(chat.CallbackMergeNow)
	assert.Equal(t, 1, f.merger.calls)

	assert.Contains(t, f.messenger.Answered, "cb-"+chat.CallbackMergeNow)
}

func TestIntentSetsMode(t *testing.T) {
	tests := []struct {
		intent   intent.Intent
		wantMode session.Mode
		wantText string
		wantKB   chat.Keyboard
	}{
		{intent.SetModePDFToWord, session.ModePDFToWord, msgModePDFToWord, chat.KeyboardMain},
		{intent.SetModeWordToPDF, session.ModeWordToPDF, msgModeWordToPDF, chat.KeyboardMain},
		{intent.SetModeMergePDFs, session.ModeMergePDFs, msgModeMerge, chat.KeyboardMerge},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			f := newFixture(t, &stubClassifier{out: intent.Classified{Intent: tt.intent}})

			f.text("do the thing")

			assert.Equal(t, tt.wantMode, f.session().Mode)
			assert.Equal(t, "mode_"+string(tt.wantMode), f.session().LastAction)
			assert.Equal(t, tt.wantText, f.messenger.LastText())
			assert.Equal(t, tt.wantKB, f.messenger.LastKeyboard())
		})
	}
}

func TestClassifierSeesHistoryWithoutCurrentText(t *testing.T) {
	classifier := &stubClassifier{out: intent.Classified{Intent: intent.Help}}
	f := newFixture(t, classifier)

	f.text("hello")
	f.text("what can you do")

	require.Len(t, classifier.seen, 2)
	assert.Equal(t, "hello", classifier.seen[0].Text)
	assert.Equal(t, msgHelpShort, classifier.seen[1].Text)
}

func TestResetIsIdempotentAndClearsHistory(t *testing.T) {
	classifier := &stubClassifier{out: intent.Classified{Intent: intent.Status}}
	f := newFixture(t, classifier)
	ctx := context.Background()

	f.press(chat.CallbackModeMergePDFs)
	f.document("a.pdf")
	f.document("b.pdf")
	f.text("merge")

	for i := 0; i < 2; i++ {
		f.command("reset")

		sess := f.session()
		assert.Equal(t, session.ModeNone, sess.Mode)
		assert.Zero(t, sess.QueueLen())
		assert.False(t, sess.ConfirmArmed(time.Now(), 0))
		assert.Equal(t, msgResetCmd, f.messenger.LastText())

		turns, err := f.memory.Recent(ctx, key, 100)
		require.NoError(t, err)
		assert.Empty(t, turns)
	}
}

func TestResetIntentUsesIntentCopy(t *testing.T) {
	f := newFixture(t, &stubClassifier{out: intent.Classified{Intent: intent.Reset}})

	f.text("start over please")

	assert.Equal(t, msgResetIntent, f.messenger.LastText())
	assert.Equal(t, "reset", f.session().LastAction)
}

func TestStatusCommand(t *testing.T) {
	f := newFixture(t, &stubClassifier{})

	f.command("status")
	assert.Equal(t, "Mode: none\nQueued PDFs: 0", f.messenger.LastText())

	f.press(chat.CallbackModeMergePDFs)
	f.document("a.pdf")
	f.command("status")
	assert.Equal(t, "Mode: merge_pdfs\nQueued PDFs: 1\nLast: merge_added", f.messenger.LastText())
}

func TestStartMentionsLimit(t *testing.T) {
	f := newFixture(t, &stubClassifier{})

	f.command("start")

	assert.Contains(t, f.messenger.LastText(), "about 20 MB per file")
	assert.Equal(t, "start", f.session().LastAction)
}

func TestAdminStatsOnlyForAdmin(t *testing.T) {
	f := newFixture(t, &stubClassifier{})

	f.command("admin_stats")
	assert.Empty(t, f.messenger.Sent)

	f.router.Handle(context.Background(), chat.Event{
		Key:     chat.ConversationKey{Platform: "telegram", UserID: "1", ChatID: "1"},
		Private: true,
		Command: "admin_stats",
	})
	assert.Equal(t, "Since boot:\nConversions completed: 0\nMerges completed: 0", f.messenger.LastText())
}

func TestGroupAdmission(t *testing.T) {
	classifier := &stubClassifier{out: intent.Classified{Intent: intent.Help}}
	f := newFixture(t, classifier)
	group := chat.ConversationKey{Platform: "telegram", UserID: "42", ChatID: "-100"}

	f.router.Handle(context.Background(), chat.Event{Key: group, Text: "pdf to word"})
	assert.Empty(t, f.messenger.Sent)
	assert.Zero(t, classifier.calls)

	f.router.Handle(context.Background(), chat.Event{Key: group, Text: "@docbot help", MentionsBot: true})
	f.router.Handle(context.Background(), chat.Event{Key: group, Text: "and merge?", ReplyToBot: true})
	assert.Equal(t, 2, classifier.calls)
}

type panickyClassifier struct{}

func (panickyClassifier) Classify(context.Context, string, []model.Turn) intent.Classified {
	panic("boom")
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	f := newFixture(t, panickyClassifier{})

	assert.NotPanics(t, func() { f.text("hi") })
	assert.Equal(t, msgInternal, f.messenger.LastText())
}
