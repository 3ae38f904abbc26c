// Package chat defines the transport-neutral view of a chat platform:
// inbound events, outbound messaging and conversation identity.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrFileTooLarge is returned by downloads that exceed the size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ConversationKey identifies one logical conversation.
type ConversationKey struct {
	Platform string
	UserID   string
	ChatID   string
}

func (k ConversationKey) String() string {
	return k.Platform + ":" + k.UserID + ":" + k.ChatID
}

// MediaKind is a non-document attachment the bot cannot process.
type MediaKind string

const (
	MediaNone    MediaKind = ""
	MediaPhoto   MediaKind = "photo"
	MediaSticker MediaKind = "sticker"
	MediaVoice   MediaKind = "voice"
	MediaVideo   MediaKind = "video"
	MediaAudio   MediaKind = "audio"
)

// Document is a generic file attachment.
type Document struct {
	// FileRef is an opaque handle the Messenger can download later.
	FileRef  string
	FileName string
	// Size is the declared size in bytes; 0 when the platform did not report it.
	Size int64
}

// Extension returns the lower-cased extension including the dot.
func (d Document) Extension() string {
	return Extension(d.FileName)
}

// Extension returns the lower-cased extension of name including the dot.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}

// Event is one inbound update, already normalized by a transport.
type Event struct {
	Key     ConversationKey
	Private bool

	// Text is the raw message text. Command is set when the text is a bot
	// command, without the leading slash or @botname suffix.
	Text    string
	Command string

	Document *Document
	Media    MediaKind

	// Callback is the data of an inline keyboard press.
	Callback   string
	CallbackID string

	ReplyToBot  bool
	MentionsBot bool

	ReceivedAt time.Time
}

// IsCallback reports whether the event is a button press.
func (e Event) IsCallback() bool {
	return e.CallbackID != "" || e.Callback != ""
}

// MessageRef addresses a sent message so it can be edited.
type MessageRef struct {
	ChatID    string
	MessageID int
}

// Messenger is the outbound side of a chat transport.
type Messenger interface {
	Send(ctx context.Context, chatID, text string, kb Keyboard) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string) error
	SendDocument(ctx context.Context, chatID, name string, data []byte) error
	// Download fetches a file, failing with ErrFileTooLarge past maxBytes.
	Download(ctx context.Context, fileRef string, maxBytes int64) ([]byte, error)
	AnswerCallback(ctx context.Context, callbackID string) error
}
