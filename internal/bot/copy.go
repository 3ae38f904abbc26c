package bot

import (
	"fmt"

	"github.com/docbot/docbot/internal/session"
	"github.com/docbot/docbot/internal/stats"
)

const (
	msgAskForMode  = "I can work with PDF and Word files. Tell me what you want first: pdf to word, word to pdf, or merge pdfs."
	msgSendAsFile  = "Please send your file as a document upload (PDF, DOC, or DOCX)."
	msgGeneric     = "Tell me what you want: pdf to word, word to pdf, or merge pdfs. You can also just send a PDF or DOCX."
	msgInternal    = "Something went wrong. Please try again."
	msgResetCmd    = "Reset done. Tell me: pdf to word, word to pdf, or merge pdfs."
	msgResetIntent = "Reset done. Send a PDF, DOCX, or tell me what you want (pdf to word, word to pdf, merge pdfs)."
	msgHelpShort   = "I can: PDF to Word, Word to PDF, and merge PDFs.\n\nTry saying: pdf to word, word to pdf, or merge pdfs."

	msgHelp = "Commands:\n" +
		"/start Start\n" +
		"/help Help\n" +
		"/status Show current mode and merge queue\n" +
		"/reset Clear workflow state and memory\n\n" +
		"Examples:\n" +
		"1) pdf to word then send a PDF\n" +
		"2) word to pdf then send a DOCX\n" +
		"3) merge pdfs then send PDFs, then done"

	// Replies to a mode change via free text, when the AI gave none.
	msgModePDFToWord = "OK. Send a PDF as a document and I’ll convert it to Word."
	msgModeWordToPDF = "OK. Send a .doc or .docx as a document and I’ll convert it to PDF."
	msgModeMerge     = "OK. Send PDFs one by one. When you’re ready, press Merge now or send done."

	// Replies to a mode button.
	msgButtonPDFToWord = "Send a PDF as a document and I’ll convert it to Word."
	msgButtonWordToPDF = "Send a .doc or .docx as a document and I’ll convert it to PDF."
	msgButtonMerge     = "Send PDFs one by one. When ready, press Merge now or send done."
)

func welcomeMessage(maxFileMB int) string {
	return "Hi. I can convert documents and merge PDFs.\n\n" +
		"1) Send a PDF to convert it to Word\n" +
		"2) Send a DOC or DOCX to convert it to PDF\n" +
		"3) To merge PDFs: say merge pdfs, then send PDFs in order, then press Merge now or send done\n\n" +
		fmt.Sprintf("Note: file limit is about %d MB per file. Please send files as documents.", maxFileMB)
}

func statusMessage(sess *session.Session) string {
	msg := fmt.Sprintf("Mode: %s\nQueued PDFs: %d", sess.Mode, sess.QueueLen())
	if sess.LastAction != "" {
		msg += "\nLast: " + sess.LastAction
	}
	return msg
}

func adminStatsMessage(s stats.Snapshot) string {
	return fmt.Sprintf("Since boot:\nConversions completed: %d\nMerges completed: %d", s.ConversionsCompleted, s.MergesCompleted)
}
