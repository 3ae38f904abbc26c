package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbot/docbot/internal/llm"
	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/pkg/logger"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Classified
	}{
		{"plain", `{"intent":"set_mode_merge_pdfs","reply":"Send PDFs."}`, Classified{SetModeMergePDFs, "Send PDFs."}},
		{"fenced", "```json\n{\"intent\":\"status\",\"reply\":\"\"}\n```", Classified{Status, ""}},
		{"upper case tag", `{"intent":" HELP ","reply":"sure"}`, Classified{Help, "sure"}},
		{"unrecognized tag keeps reply", `{"intent":"dance","reply":"I can only do documents."}`, Classified{Unknown, "I can only do documents."}},
		{"missing reply", `{"intent":"status"}`, Classified{Unknown, ""}},
		{"missing intent", `{"reply":"hi"}`, Classified{Unknown, ""}},
		{"non-string intent", `{"intent":3,"reply":"hi"}`, Classified{Unknown, ""}},
		{"null reply", `{"intent":"status","reply":null}`, Classified{Unknown, ""}},
		{"malformed", `{"intent":`, Classified{Unknown, ""}},
		{"prose", `Sure! You want to merge.`, Classified{Unknown, ""}},
		{"array", `["status"]`, Classified{Unknown, ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

type recordingClient struct {
	req     *llm.CompletionRequest
	content string
	err     error
}

func (c *recordingClient) Name() string { return "recording" }

func (c *recordingClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.req = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content}, nil
}

func TestClassifyBuildsConversation(t *testing.T) {
	client := &recordingClient{content: `{"intent":"set_mode_pdf_to_word","reply":"OK"}`}
	c := NewClassifier(client, "telegram", logger.NewNop())

	history := []model.Turn{
		{Role: model.RoleUser, Text: "hi"},
		{Role: model.RoleAssistant, Text: "hello"},
	}
	got := c.Classify(context.Background(), "pdf to word please", history)

	assert.Equal(t, Classified{SetModePDFToWord, "OK"}, got)
	require.NotNil(t, client.req)
	require.Len(t, client.req.Messages, 4)
	assert.Equal(t, "system", client.req.Messages[0].Role)
	assert.Equal(t, "hi", client.req.Messages[1].Content)
	assert.Equal(t, "assistant", client.req.Messages[2].Role)
	assert.Equal(t, "pdf to word please", client.req.Messages[3].Content)
	assert.Equal(t, map[string]string{"platform": "telegram", "feature": "intent"}, client.req.Meta)
}

func TestClassifySwallowsAIFailure(t *testing.T) {
	client := &recordingClient{err: errors.New("gateway unreachable")}
	c := NewClassifier(client, "telegram", logger.NewNop())

	got := c.Classify(context.Background(), "please help", nil)

	assert.Equal(t, Classified{Intent: Unknown}, got)
}
