// Package chattest provides a recording chat.Messenger for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/docbot/docbot/internal/chat"
)

// Sent is one outbound text message.
type Sent struct {
	ChatID   string
	Text     string
	Keyboard chat.Keyboard
	Ref      chat.MessageRef
}

// Edit is one in-place rewrite of a sent message.
type Edit struct {
	Ref  chat.MessageRef
	Text string
}

// Document is one uploaded file.
type Document struct {
	ChatID string
	Name   string
	Data   []byte
}

// Messenger records every call. Files maps a FileRef to its content;
// the error fields force failures of the corresponding call.
type Messenger struct {
	mu sync.Mutex

	Files map[string][]byte

	SendErr     error
	EditErr     error
	UploadErr   error
	DownloadErr error

	Sent      []Sent
	Edits     []Edit
	Documents []Document
	Downloads []string
	Answered  []string

	nextID int
}

// NewMessenger returns an empty recorder.
func NewMessenger() *Messenger {
	return &Messenger{Files: make(map[string][]byte)}
}

func (m *Messenger) Send(_ context.Context, chatID, text string, kb chat.Keyboard) (chat.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return chat.MessageRef{}, m.SendErr
	}
	m.nextID++
	ref := chat.MessageRef{ChatID: chatID, MessageID: m.nextID}
	m.Sent = append(m.Sent, Sent{ChatID: chatID, Text: text, Keyboard: kb, Ref: ref})
	return ref, nil
}

func (m *Messenger) Edit(_ context.Context, ref chat.MessageRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EditErr != nil {
		return m.EditErr
	}
	m.Edits = append(m.Edits, Edit{Ref: ref, Text: text})
	return nil
}

func (m *Messenger) SendDocument(_ context.Context, chatID, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.Documents = append(m.Documents, Document{ChatID: chatID, Name: name, Data: data})
	return nil
}

func (m *Messenger) Download(_ context.Context, fileRef string, maxBytes int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Downloads = append(m.Downloads, fileRef)
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	data, ok := m.Files[fileRef]
	if !ok {
		return nil, fmt.Errorf("file %q not found", fileRef)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, chat.ErrFileTooLarge
	}
	return data, nil
}

func (m *Messenger) AnswerCallback(_ context.Context, callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Answered = append(m.Answered, callbackID)
	return nil
}

// Texts returns the text of every sent message in order.
func (m *Messenger) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.Sent))
	for i, s := range m.Sent {
		out[i] = s.Text
	}
	return out
}

// LastText returns the most recent sent text, or "".
func (m *Messenger) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return ""
	}
	return m.Sent[len(m.Sent)-1].Text
}

// LastKeyboard returns the keyboard of the most recent message.
func (m *Messenger) LastKeyboard() chat.Keyboard {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return chat.KeyboardNone
	}
	return m.Sent[len(m.Sent)-1].Keyboard
}

// EditTexts returns the text of every edit in order.
func (m *Messenger) EditTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.Edits))
	for i, e := range m.Edits {
		out[i] = e.Text
	}
	return out
}

// NetworkCalls counts downloads and uploads.
func (m *Messenger) NetworkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Downloads) + len(m.Documents)
}
