package chat

// Keyboard selects the inline keyboard attached to a reply.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMain
	KeyboardMerge
)

// Callback data carried by keyboard buttons.
const (
	CallbackModePDFToWord = "mode:pdf_to_word"
	CallbackModeWordToPDF = "mode:word_to_pdf"
	CallbackModeMergePDFs = "mode:merge_pdfs"
	CallbackMergeNow      = "merge:now"
	CallbackMergeRemove   = "merge:remove_last"
	CallbackMergeClear    = "merge:clear"
)

// Button is one inline keyboard button.
type Button struct {
	Label string
	Data  string
}

// Rows returns the button layout of the keyboard, nil for KeyboardNone.
func (k Keyboard) Rows() [][]Button {
	switch k {
	case KeyboardMain:
		return [][]Button{
			{{Label: "PDF to Word", Data: CallbackModePDFToWord}, {Label: "Word to PDF", Data: CallbackModeWordToPDF}},
			{{Label: "Merge PDFs", Data: CallbackModeMergePDFs}},
		}
	case KeyboardMerge:
		return [][]Button{
			{{Label: "Merge now", Data: CallbackMergeNow}},
			{{Label: "Remove last", Data: CallbackMergeRemove}, {Label: "Clear", Data: CallbackMergeClear}},
		}
	default:
		return nil
	}
}
