package transcript

import "fmt"

// Word is a single transcribed word as returned by a transcription service.
// Speaker is nil when the service attributed the word to no speaker; a
// pointer keeps speaker 0 distinct from "no speaker". Punctuated is nil when
// the service supplied no punctuated form, in which case Text is used.
type Word struct {
	Text       string
	Punctuated *string
	Start      float64
	End        float64
	Confidence float64
	Speaker    *int
}

// Display returns the punctuated form when present, the raw form otherwise.
func (w Word) Display() string {
	if w.Punctuated != nil {
		return *w.Punctuated
	}
	return w.Text
}

// Turn is a maximal run of consecutive words attributed to the same speaker.
type Turn struct {
	Speaker int
	Text    string
	Start   float64
	End     float64
}

func (t Turn) String() string {
	return fmt.Sprintf("Speaker %d: %s", t.Speaker, t.Text)
}
