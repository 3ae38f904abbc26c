package workflow

import "fmt"

const (
	msgDownloading = "Downloading..."
	msgProcessing  = "Processing..."
	msgMerging     = "Merging..."
	msgUploading   = "Uploading..."
	msgDone        = "Done."

	msgReceivedPDF  = "Got it. Converting your PDF to Word now."
	msgReceivedWord = "Got it. Converting your Word document to PDF now."

	msgWrongTypePDFToWord = "For PDF to Word, please send a PDF as a document."
	msgWrongTypeWordToPDF = "For Word to PDF, please send a .doc or .docx as a document."
	msgWrongTypeMerge     = "Merge mode only accepts PDFs. Please send a PDF document file."

	msgConvertFailedPDF  = "Sorry, that conversion failed. Please try again or send a smaller/cleaner PDF."
	msgConvertFailedWord = "Sorry, that conversion failed. Please try again or send a simpler/smaller DOCX."
	msgConvertApology    = "Sorry, that conversion failed. Please retry with a smaller file."

	msgMergeEmpty      = "No PDFs queued yet. Send PDFs first (as documents)."
	msgMergeOne        = "You only have 1 PDF queued. Send at least 2 PDFs to merge."
	msgMergeFailed     = "Sorry, merging failed. Please try again, or send smaller PDFs."
	msgMergeApology    = "Sorry, merging failed. Please retry with smaller PDFs."
	msgMergeEncrypted  = "Sorry, I can't merge password-protected PDFs."
	msgNothingToRemove = "Nothing to remove."
	msgMergeCleared    = "Cleared the merge queue. Send PDFs again in the order you want."

	// MergedFileName is the name of every merge result.
	MergedFileName = "merged.pdf"
)

// TooLargeMessage is the rejection for a file over the limit.
func TooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("That file is too large for this bot right now. Please send a smaller file (limit is %d MB).", maxBytes/(1024*1024))
}

func msgAdded(n int) string {
	return fmt.Sprintf("Added. Now queued: %d. Send more PDFs, or press Merge now / send done.", n)
}

func msgRemoved(n int) string {
	return fmt.Sprintf("Removed the last PDF. Now queued: %d.", n)
}

func msgConfirm(n int) string {
	return fmt.Sprintf("You have %d PDFs queued. Reply with yes to confirm merging, or send clear to start over.", n)
}

func msgEncryptedDetail(name string) string {
	if name == "" {
		return "One of the queued PDFs is password-protected, so I can't merge it. Send clear, then send unlocked copies."
	}
	return fmt.Sprintf("%s is password-protected, so I can't merge it. Send remove last or clear, then send an unlocked copy.", name)
}
