package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbot/docbot/internal/chat"
)

func file(name string) QueuedFile {
	return QueuedFile{FileRef: "ref-" + name, Name: name, Size: 10, AddedAt: time.Unix(0, 0)}
}

func TestRemoveLastDropsOnlyFinalElement(t *testing.T) {
	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d queued", n), func(t *testing.T) {
			s := &Session{}
			var want []QueuedFile
			for i := 0; i < n; i++ {
				f := file(fmt.Sprintf("f%d.pdf", i))
				s.Enqueue(f)
				want = append(want, f)
			}

			removed, ok := s.RemoveLast()

			if n == 0 {
				assert.False(t, ok)
				assert.Empty(t, s.Queue())
				return
			}
			require.True(t, ok)
			assert.Equal(t, want[n-1], removed)
			assert.Equal(t, want[:n-1], s.Queue()[:n-1])
			assert.Equal(t, n-1, s.QueueLen())
		})
	}
}

func TestEnqueueCommitsToMergeAndDisarms(t *testing.T) {
	now := time.Now()
	s := &Session{Mode: ModePDFToWord}
	s.ArmConfirm(now)

	n := s.Enqueue(file("a.pdf"))

	assert.Equal(t, 1, n)
	assert.Equal(t, ModeMergePDFs, s.Mode)
	assert.False(t, s.ConfirmArmed(now, 0))
}

func TestQueueReturnsCopy(t *testing.T) {
	s := &Session{}
	s.Enqueue(file("a.pdf"))

	q := s.Queue()
	q[0].Name = "mutated"

	assert.Equal(t, "a.pdf", s.Queue()[0].Name)
}

func TestConfirmGateExpiry(t *testing.T) {
	armed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{}

	assert.False(t, s.ConfirmArmed(armed, time.Minute))

	s.ArmConfirm(armed)
	assert.True(t, s.ConfirmArmed(armed.Add(30*time.Second), time.Minute))
	assert.False(t, s.ConfirmArmed(armed.Add(2*time.Minute), time.Minute))
	assert.True(t, s.ConfirmArmed(armed.Add(72*time.Hour), 0), "zero ttl never expires")

	s.DisarmConfirm()
	assert.False(t, s.ConfirmArmed(armed, 0))
}

func TestResetIsIdempotent(t *testing.T) {
	states := []*Session{
		{},
		{Mode: ModeWordToPDF, LastAction: "converted_word_to_pdf"},
		func() *Session {
			s := &Session{}
			s.Enqueue(file("a.pdf"))
			s.Enqueue(file("b.pdf"))
			s.ArmConfirm(time.Now())
			return s
		}(),
	}

	for i, s := range states {
		t.Run(fmt.Sprintf("state %d", i), func(t *testing.T) {
			for j := 0; j < 2; j++ {
				s.Reset()
				assert.Equal(t, ModeNone, s.Mode)
				assert.Zero(t, s.QueueLen())
				assert.False(t, s.ConfirmArmed(time.Now(), 0))
			}
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "none", ModeNone.String())
	assert.Equal(t, "merge_pdfs", ModeMergePDFs.String())
}

func TestStoreGetCreatesAndReuses(t *testing.T) {
	store := NewStore(time.Hour)
	key := chat.ConversationKey{Platform: "telegram", UserID: "1", ChatID: "1"}

	s := store.Get(key)
	require.NotNil(t, s)
	assert.Equal(t, ModeNone, s.Mode)
	assert.Zero(t, s.QueueLen())

	s.Mode = ModeMergePDFs
	assert.Same(t, s, store.Get(key))

	other := store.Get(chat.ConversationKey{Platform: "telegram", UserID: "2", ChatID: "2"})
	assert.NotSame(t, s, other)
	assert.Equal(t, 2, store.Len())

	store.Delete(key)
	assert.Equal(t, ModeNone, store.Get(key).Mode)
}

func TestStoreWithoutTTLNeverExpires(t *testing.T) {
	store := NewStore(0)
	key := chat.ConversationKey{Platform: "telegram", UserID: "1", ChatID: "1"}
	store.Get(key).Enqueue(file("a.pdf"))

	item, ok := store.cache.Items()[key.String()]
	require.True(t, ok)
	assert.Zero(t, item.Expiration)
	assert.Equal(t, 1, store.Get(key).QueueLen())
}
