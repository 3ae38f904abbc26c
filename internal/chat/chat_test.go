package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.PDF", ".pdf"},
		{"archive.tar.docx", ".docx"},
		{"noext", ""},
		{"", ""},
		{".hidden", ".hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.name))
		})
	}
}

func TestConversationKeyString(t *testing.T) {
	k := ConversationKey{Platform: "telegram", UserID: "42", ChatID: "-100"}
	assert.Equal(t, "telegram:42:-100", k.String())
}

func TestKeyboardRows(t *testing.T) {
	assert.Nil(t, KeyboardNone.Rows())

	main := KeyboardMain.Rows()
	assert.Len(t, main, 2)
	assert.Equal(t, CallbackModePDFToWord, main[0][0].Data)
	assert.Equal(t, CallbackModeMergePDFs, main[1][0].Data)

	merge := KeyboardMerge.Rows()
	assert.Equal(t, "Merge now", merge[0][0].Label)
	assert.Equal(t, CallbackMergeClear, merge[1][1].Data)
}
