package telegram

import (
	"strconv"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/docbot/docbot/internal/chat"
)

// toEvent normalizes an update. It reports false for updates the bot does
// not handle (edits, channel posts, inline queries).
func toEvent(u tgbotapi.Update, botName string) (chat.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return chat.Event{}, false
		}
		return chat.Event{
			Key:        key(cq.From, cq.Message.Chat),
			Private:    cq.Message.Chat.IsPrivate(),
			Callback:   cq.Data,
			CallbackID: cq.ID,
			ReceivedAt: cq.Message.Time(),
		}, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return chat.Event{}, false
	}

	ev := chat.Event{
		Key:        key(msg.From, msg.Chat),
		Private:    msg.Chat.IsPrivate(),
		Text:       msg.Text,
		ReceivedAt: msg.Time(),
	}

	if msg.IsCommand() {
		ev.Command = strings.ToLower(msg.Command())
		if at := msg.CommandWithAt(); strings.Contains(at, "@") {
			ev.MentionsBot = strings.EqualFold(at[strings.Index(at, "@")+1:], botName)
		}
	}

	if r := msg.ReplyToMessage; r != nil && r.From != nil && r.From.IsBot {
		ev.ReplyToBot = strings.EqualFold(r.From.UserName, botName)
	}
	if !ev.MentionsBot {
		ev.MentionsBot = mentions(msg.Text, msg.Entities, botName) || mentions(msg.Caption, msg.CaptionEntities, botName)
	}

	switch {
	case msg.Document != nil:
		ev.Document = &chat.Document{
			FileRef:  msg.Document.FileID,
			FileName: msg.Document.FileName,
			Size:     int64(msg.Document.FileSize),
		}
	case len(msg.Photo) > 0:
		ev.Media = chat.MediaPhoto
	case msg.Sticker != nil:
		ev.Media = chat.MediaSticker
	case msg.Voice != nil:
		ev.Media = chat.MediaVoice
	case msg.Video != nil:
		ev.Media = chat.MediaVideo
	case msg.Audio != nil:
		ev.Media = chat.MediaAudio
	}

	return ev, true
}

func key(from *tgbotapi.User, c *tgbotapi.Chat) chat.ConversationKey {
	return chat.ConversationKey{
		Platform: Platform,
		UserID:   strconv.FormatInt(from.ID, 10),
		ChatID:   strconv.FormatInt(c.ID, 10),
	}
}

// mentions reports whether entities contain an @mention of botName. Entity
// offsets count UTF-16 code units.
func mentions(text string, entities []tgbotapi.MessageEntity, botName string) bool {
	if botName == "" || len(entities) == 0 {
		return false
	}
	units := utf16.Encode([]rune(text))
	for _, e := range entities {
		if e.Type != "mention" || e.Offset < 0 || e.Offset+e.Length > len(units) {
			continue
		}
		s := string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
		if strings.EqualFold(s, "@"+botName) {
			return true
		}
	}
	return false
}
