// Package intent turns free-text messages into a discrete action using the
// AI service. Classification is advisory and never fails.
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/llm"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/pkg/logger"
	"github.com/docbot/docbot/pkg/metrics"
)

// Intent is a classified user action.
type Intent string

const (
	SetModePDFToWord Intent = "set_mode_pdf_to_word"
	SetModeWordToPDF Intent = "set_mode_word_to_pdf"
	SetModeMergePDFs Intent = "set_mode_merge_pdfs"
	MergeDone        Intent = "merge_done"
	MergeRemoveLast  Intent = "merge_remove_last"
	MergeClear       Intent = "merge_clear"
	Status           Intent = "status"
	Reset            Intent = "reset"
	Help             Intent = "help"
	Unknown          Intent = "unknown"
)

var known = map[Intent]bool{
	SetModePDFToWord: true,
	SetModeWordToPDF: true,
	SetModeMergePDFs: true,
	MergeDone:        true,
	MergeRemoveLast:  true,
	MergeClear:       true,
	Status:           true,
	Reset:            true,
	Help:             true,
	Unknown:          true,
}

// Classified is the result of classification. An empty Reply means the
// caller picks its own wording.
type Classified struct {
	Intent Intent
	Reply  string
}

const systemPrompt = "You are a Telegram document utility bot. Your job is to interpret the user's intent and respond with a tiny JSON object only. " +
	"Allowed intents: set_mode_pdf_to_word, set_mode_word_to_pdf, set_mode_merge_pdfs, merge_done, merge_remove_last, merge_clear, status, reset, help, unknown. " +
	"Return JSON with keys: intent (string), reply (string). Keep reply short and friendly. Do not use markdown."

// Classifier asks the AI service for an intent.
type Classifier struct {
	client   llm.Client
	platform string
	log      *logger.Logger
}

// NewClassifier creates a classifier for the given platform tag.
func NewClassifier(client llm.Client, platform string, log *logger.Logger) *Classifier {
	return &Classifier{client: client, platform: platform, log: log}
}

// Classify interprets text in the context of history (oldest first). Any AI
// or parse failure yields {Unknown, ""}.
func (c *Classifier) Classify(ctx context.Context, text string, history []model.Turn) Classified {
	ctx, span := otel.Tracer("docbot/intent").Start(ctx, "intent.Classify")
	defer span.End()

	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.ChatMessage{Role: string(model.RoleSystem), Content: systemPrompt})
	for _, t := range history {
		if t.Role != model.RoleUser && t.Role != model.RoleAssistant {
			continue
		}
		messages = append(messages, llm.ChatMessage{Role: string(t.Role), Content: t.Text})
	}
	messages = append(messages, llm.ChatMessage{Role: string(model.RoleUser), Content: text})

	start := time.Now()
	resp, err := c.client.Complete(ctx, &llm.CompletionRequest{
		Messages: messages,
		Meta: map[string]string{
			"platform": c.platform,
			"feature":  "intent",
		},
	})
	if err != nil {
		c.log.Warn("Intent classification failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		metrics.RecordIntent(string(Unknown))
		span.SetAttributes(attribute.String("intent", string(Unknown)), attribute.Bool("ai_failed", true))
		return Classified{Intent: Unknown}
	}

	out := Parse(resp.Content)
	metrics.RecordIntent(string(out.Intent))
	span.SetAttributes(attribute.String("intent", string(out.Intent)))
	c.log.Debug("Intent classified", zap.String("intent", string(out.Intent)), zap.Duration("elapsed", time.Since(start)))
	return out
}

// Parse decodes the AI answer. The object must carry string values for both
// intent and reply; anything else is {Unknown, ""}. An intent outside the
// known set becomes Unknown but keeps its reply.
func Parse(raw string) Classified {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFences(raw)), &fields); err != nil {
		return Classified{Intent: Unknown}
	}

	tag, okIntent := stringField(fields, "intent")
	reply, okReply := stringField(fields, "reply")
	if !okIntent || !okReply {
		return Classified{Intent: Unknown}
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(tag)))
	if !known[intent] {
		intent = Unknown
	}
	return Classified{Intent: intent, Reply: strings.TrimSpace(reply)}
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

// stripFences removes a surrounding ``` or ```json block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
