package transcript

import "strings"

// Segment merges an ordered word sequence into speaker turns in a single
// left-to-right pass. Words without a speaker id are skipped entirely: they
// neither start, extend, nor close a turn. Input order is preserved and
// timestamps are passed through uncorrected; the service owns their
// monotonicity. The only suppression rule is that a turn whose text trims to
// empty is never emitted.
func Segment(words []Word) []Turn {
	var turns []Turn

	open := false
	var current Turn

	flush := func() {
		if !open {
			return
		}
		if text := strings.TrimSpace(current.Text); text != "" {
			current.Text = text
			turns = append(turns, current)
		}
	}

	for _, w := range words {
		if w.Speaker == nil {
			continue
		}

		switch {
		case !open:
			current = Turn{Speaker: *w.Speaker, Text: w.Display(), Start: w.Start, End: w.End}
			open = true
		case *w.Speaker == current.Speaker:
			current.Text += " " + w.Display()
			current.End = w.End
		default:
			flush()
			current = Turn{Speaker: *w.Speaker, Text: w.Display(), Start: w.Start, End: w.End}
		}
	}

	flush()
	return turns
}
