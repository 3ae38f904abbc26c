// Package session holds per-conversation workflow state.
package session

import (
	"time"
)

// Mode is the workflow a conversation is committed to.
type Mode string

const (
	ModeNone      Mode = ""
	ModePDFToWord Mode = "pdf_to_word"
	ModeWordToPDF Mode = "word_to_pdf"
	ModeMergePDFs Mode = "merge_pdfs"
)

func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}

// QueuedFile is a PDF staged for merging. Values are never mutated after enqueue.
type QueuedFile struct {
	FileRef string
	Name    string
	Size    int64
	AddedAt time.Time
}

// Session is the mutable state of one conversation. It is not safe for
// concurrent use; callers serialize events per conversation.
type Session struct {
	Mode       Mode
	LastAction string

	queue       []QueuedFile
	confirmedAt time.Time
}

// Queue returns a copy of the merge queue in enqueue order.
func (s *Session) Queue() []QueuedFile {
	out := make([]QueuedFile, len(s.queue))
	copy(out, s.queue)
	return out
}

// QueueLen returns the number of queued files.
func (s *Session) QueueLen() int {
	return len(s.queue)
}

// Enqueue appends f, commits the conversation to merge mode and disarms the
// confirmation gate. It returns the new queue length.
func (s *Session) Enqueue(f QueuedFile) int {
	s.queue = append(s.queue, f)
	s.Mode = ModeMergePDFs
	s.DisarmConfirm()
	return len(s.queue)
}

// RemoveLast pops the most recently queued file.
func (s *Session) RemoveLast() (QueuedFile, bool) {
	if len(s.queue) == 0 {
		return QueuedFile{}, false
	}
	last := s.queue[len(s.queue)-1]
	s.queue = s.queue[:len(s.queue)-1]
	return last, true
}

// ClearQueue empties the queue and disarms the confirmation gate.
func (s *Session) ClearQueue() {
	s.queue = nil
	s.DisarmConfirm()
}

// ArmConfirm arms the one-shot merge confirmation gate.
func (s *Session) ArmConfirm(now time.Time) {
	s.confirmedAt = now
}

// DisarmConfirm clears the confirmation gate.
func (s *Session) DisarmConfirm() {
	s.confirmedAt = time.Time{}
}

// ConfirmArmed reports whether the gate is armed and younger than ttl.
// A ttl of zero means the gate never expires.
func (s *Session) ConfirmArmed(now time.Time, ttl time.Duration) bool {
	if s.confirmedAt.IsZero() {
		return false
	}
	if ttl > 0 && now.Sub(s.confirmedAt) > ttl {
		return false
	}
	return true
}

// Reset returns the session to its initial state.
func (s *Session) Reset() {
	s.Mode = ModeNone
	s.LastAction = ""
	s.ClearQueue()
}
