package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/turnscribe/turnscribe/internal/transcript"
)

const deepgramListenURL = "https://api.deepgram.com/v1/listen"

// DeepgramAdapter implements Adapter for Deepgram's pre-recorded API with
// diarization enabled, so every word carries a speaker id.
type DeepgramAdapter struct {
	baseURL  string
	apiKey   string
	model    string
	language string
	client   *http.Client
}

type deepgramResponse struct {
	Results *deepgramResults `json:"results"`
	Error   *deepgramError   `json:"error"`
}

type deepgramResults struct {
	Channels []deepgramChannel `json:"channels"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives"`
}

type deepgramAlternative struct {
	Transcript string         `json:"transcript"`
	Confidence float64        `json:"confidence"`
	Words      []deepgramWord `json:"words"`
}

type deepgramWord struct {
	Word       string  `json:"word"`
	Punctuated *string `json:"punctuated_word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker"`
}

type deepgramError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewDeepgramAdapter(apiKey, model, language string, timeout time.Duration) *DeepgramAdapter {
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramAdapter{
		baseURL:  deepgramListenURL,
		apiKey:   apiKey,
		model:    model,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

func (a *DeepgramAdapter) Transcribe(ctx context.Context, wav []byte) (*Result, error) {
	apiURL, err := a.buildURL()
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(wav))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+a.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("post deepgram: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Status: resp.StatusCode, Message: string(body)}
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	if parsed.Error != nil {
		return nil, &ServiceError{Message: parsed.Error.Message}
	}
	if parsed.Results == nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("response carries no results")}
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return &Result{}, nil
	}

	alt := parsed.Results.Channels[0].Alternatives[0]
	result := &Result{
		Transcript: alt.Transcript,
		Words:      make([]transcript.Word, 0, len(alt.Words)),
	}
	for _, w := range alt.Words {
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

func (a *DeepgramAdapter) buildURL() (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("model", a.model)
	q.Set("diarize", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if a.language != "" {
		q.Set("language", a.language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
