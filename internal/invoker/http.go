package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"maestro/internal/fault"
	"maestro/internal/logging"
	"maestro/internal/metrics"
)

// HTTP invokes a remote provider through an OpenAI-compatible
// chat-completions endpoint, authenticated from the KeyStore.
type HTTP struct {
	Provider string
	BaseURL  string
	keys     KeyStore
	client   *http.Client
	log      interface {
		Debugw(msg string, kv ...interface{})
	}
}

// NewHTTP builds a provider invoker. baseURL may or may not carry the
// /chat/completions suffix; it is normalized either way.
func NewHTTP(provider, baseURL string, keys KeyStore) *HTTP {
	return &HTTP{
		Provider: provider,
		BaseURL:  normalizeBaseURL(baseURL),
		keys:     keys,
		client:   &http.Client{},
		log:      logging.Get(logging.CategoryInvoker),
	}
}

// normalizeBaseURL strips trailing slashes and a "/chat/completions"
// suffix so the path is never doubled when the client appends it.
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(raw, "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []chatMsg `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (h *HTTP) Invoke(ctx context.Context, req Request) (Response, error) {
	key, found := h.keys.Get(h.Provider)
	if !found || key == "" {
		return Response{}, fault.New(fault.KindBackend, "invoker.http", "no credential for provider %s", h.Provider)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultInvokeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]chatMsg, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMsg{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMsg{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fault.Wrap(fault.KindInternal, "invoker.http", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fault.Wrap(fault.KindInternal, "invoker.http", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return Response{}, fault.Wrap(fault.KindCancelled, "invoker.http", ctx.Err())
		}
		metrics.InvocationsTotal.WithLabelValues(req.Model, "error").Inc()
		return Response{}, fault.Wrap(fault.KindBackend, "invoker.http", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return Response{}, fault.Wrap(fault.KindBackend, "invoker.http", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		metrics.InvocationsTotal.WithLabelValues(req.Model, fmt.Sprintf("http_%d", httpResp.StatusCode)).Inc()
		return Response{}, fault.New(fault.KindBackend, "invoker.http", "provider %s returned %d: %s", h.Provider, httpResp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fault.Wrap(fault.KindBackend, "invoker.http", err)
	}
	if parsed.Error != nil {
		return Response{}, fault.New(fault.KindBackend, "invoker.http", "provider %s error: %s", h.Provider, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fault.New(fault.KindBackend, "invoker.http", "provider %s returned no choices", h.Provider)
	}

	text := parsed.Choices[0].Message.Content
	h.log.Debugw("http invocation complete", "provider", h.Provider, "model", req.Model, "duration", time.Since(start))
	metrics.InvocationsTotal.WithLabelValues(req.Model, "ok").Inc()

	resp := Response{
		Text:         text,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}
	if resp.InputTokens == 0 && resp.OutputTokens == 0 {
		resp.InputTokens = approxTokens(req.Prompt)
		resp.OutputTokens = approxTokens(text)
	}
	metrics.TokensTotal.WithLabelValues(req.Model, "input").Add(float64(resp.InputTokens))
	metrics.TokensTotal.WithLabelValues(req.Model, "output").Add(float64(resp.OutputTokens))
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
