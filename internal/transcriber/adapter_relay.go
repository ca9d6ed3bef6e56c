package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turnscribe/turnscribe/internal/transcript"
)

// RelayAdapter talks to a self-hosted transcription relay: a single POST
// with the WAV container as raw body, answered by a JSON document carrying
// either an error string or a transcript plus a word list.
type RelayAdapter struct {
	endpoint string
	client   *http.Client
}

type relayResponse struct {
	// Pointers distinguish absent fields from empty values: a response with
	// neither transcription nor error is malformed, not silence.
	Transcription *string     `json:"transcription"`
	Error         *string     `json:"error"`
	Words         []relayWord `json:"words"`
}

type relayWord struct {
	Word       string   `json:"word"`
	Punctuated *string  `json:"punctuated_word"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Confidence float64  `json:"confidence"`
	Speaker    *int     `json:"speaker"`
}

func NewRelayAdapter(endpoint string, timeout time.Duration) *RelayAdapter {
	return &RelayAdapter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (a *RelayAdapter) Transcribe(ctx context.Context, wav []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(wav))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("post %s: %w", a.endpoint, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Status: resp.StatusCode, Message: string(body)}
	}

	var parsed relayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	if parsed.Error != nil && *parsed.Error != "" {
		// The relay's error message is passed through verbatim.
		return nil, &ServiceError{Message: *parsed.Error}
	}

	if parsed.Transcription == nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("response carries neither transcription nor error")}
	}

	result := &Result{
		Transcript: *parsed.Transcription,
		Words:      make([]transcript.Word, 0, len(parsed.Words)),
	}
	for _, w := range parsed.Words {
		result.Words = append(result.Words, transcript.Word{
			Text:       w.Word,
			Punctuated: w.Punctuated,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.Confidence,
			Speaker:    w.Speaker,
		})
	}
	return result, nil
}
