package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPAdapter implements Adapter against two HTTP services: a go-whisper
// container for speech-to-text and a JSON NLP service for everything else.
//
// go-whisper API: POST {whisperURL}/api/whisper/transcribe (multipart/form-data)
// NLP API: POST {nlpURL}/{translate,sentiment,action-items,interpret,answer} (JSON)
type HTTPAdapter struct {
	whisperURL   string
	whisperModel string
	nlpURL       string
	httpClient   *http.Client
}

// NewHTTPAdapter creates an adapter for the given service base URLs.
//
// The client timeout is a backstop only; per-call deadlines come from ctx.
func NewHTTPAdapter(whisperURL, whisperModel, nlpURL string) *HTTPAdapter {
	if whisperModel == "" {
		whisperModel = "ggml-base"
	}
	return &HTTPAdapter{
		whisperURL:   whisperURL,
		whisperModel: whisperModel,
		nlpURL:       nlpURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Transcribe sends the audio chunk to go-whisper as multipart form data.
func (h *HTTPAdapter) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("empty audio")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "chunk.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	model := h.whisperModel
	if req.Model != "" {
		model = req.Model
	}
	fields := map[string]string{
		"model":           model,
		"response_format": "json",
		"temperature":     "0.0",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := h.whisperURL + "/api/whisper/transcribe"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	var out TranscribeResult
	if err := h.do(httpReq, "transcribe", &out); err != nil {
		return nil, err
	}
	if out.Language == "" {
		out.Language = req.Language
	}
	return &out, nil
}

type translateReq struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

type textResp struct {
	Text string `json:"text"`
}

// Translate returns the translated text.
func (h *HTTPAdapter) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	var out textResp
	if err := h.postJSON(ctx, "/translate", "translate", translateReq{Text: text, From: fromLang, To: toLang}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

type speakerTextReq struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

// ScoreSentiment scores one utterance.
func (h *HTTPAdapter) ScoreSentiment(ctx context.Context, text, speaker string) (*SentimentScore, error) {
	var out SentimentScore
	if err := h.postJSON(ctx, "/sentiment", "sentiment", speakerTextReq{Text: text, Speaker: speaker}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type actionItemsResp struct {
	Items []string `json:"items"`
}

// ExtractActionItems returns candidate action-item phrases.
func (h *HTTPAdapter) ExtractActionItems(ctx context.Context, text, speaker string) ([]string, error) {
	var out actionItemsResp
	if err := h.postJSON(ctx, "/action-items", "action items", speakerTextReq{Text: text, Speaker: speaker}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

type interpretReq struct {
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

// InterpretCommand classifies a free-text assistant command.
func (h *HTTPAdapter) InterpretCommand(ctx context.Context, text string, context map[string]string) (*CommandInterpretation, error) {
	var out CommandInterpretation
	if err := h.postJSON(ctx, "/interpret", "interpret", interpretReq{Text: text, Context: context}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Answer asks the NLP service to reason over the supplied transcript.
func (h *HTTPAdapter) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	var out textResp
	if err := h.postJSON(ctx, "/answer", "answer", req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// HealthCheck probes both services; the adapter is healthy only if both are.
func (h *HTTPAdapter) HealthCheck(ctx context.Context) (bool, error) {
	for _, endpoint := range []string{h.nlpURL + "/health", h.whisperURL + "/api/whisper/model"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return false, fmt.Errorf("failed to create health check request: %w", err)
		}
		resp, err := h.httpClient.Do(req)
		if err != nil {
			return false, fmt.Errorf("health check request failed: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("health check %s failed: status %d", endpoint, resp.StatusCode)
		}
	}
	return true, nil
}

// Name returns the identifier of this implementation.
func (h *HTTPAdapter) Name() string {
	return "http"
}

func (h *HTTPAdapter) postJSON(ctx context.Context, path, op string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.nlpURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, op, out)
}

func (h *HTTPAdapter) do(req *http.Request, op string, out any) error {
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s", op, resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", op, err)
	}
	return nil
}
