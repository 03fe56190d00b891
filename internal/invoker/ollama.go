package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"maestro/internal/fault"
)

const describeTimeout = 5 * time.Second

// OllamaClient talks to the local daemon's management API. The registry
// uses it to discover advertised models and to validate them cheaply.
type OllamaClient struct {
	BaseURL string
	client  *http.Client
}

// NewOllamaClient targets the given base URL, defaulting to the
// daemon's standard local port.
func NewOllamaClient(baseURL string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaClient{BaseURL: baseURL, client: &http.Client{}}
}

// ListedModel is one row of the daemon's model listing.
type ListedModel struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// List returns the models the daemon advertises via /api/tags.
func (c *OllamaClient) List(ctx context.Context) ([]ListedModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "invoker.ollama.list", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.KindBackend, "invoker.ollama.list", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fault.New(fault.KindBackend, "invoker.ollama.list", "daemon returned %d", resp.StatusCode)
	}

	var parsed struct {
		Models []ListedModel `json:"models"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&parsed); err != nil {
		return nil, fault.Wrap(fault.KindBackend, "invoker.ollama.list", err)
	}
	return parsed.Models, nil
}

// Describe checks a single model through /api/show with a short
// deadline. A nil return means the daemon knows the model.
func (c *OllamaClient) Describe(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, describeTimeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"name": name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/show", bytes.NewReader(body))
	if err != nil {
		return fault.Wrap(fault.KindInternal, "invoker.ollama.describe", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fault.Wrap(fault.KindBackend, "invoker.ollama.describe", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fault.New(fault.KindBackend, "invoker.ollama.describe", "describe %s returned %d", name, resp.StatusCode)
	}
	return nil
}

// Load warms a model into daemon memory: an empty generate request
// with a positive keep_alive makes the daemon page the weights in
// without producing output.
func (c *OllamaClient) Load(ctx context.Context, name string) error {
	return c.keepAlive(ctx, name, "10m", "invoker.ollama.load")
}

// Unload asks the daemon to release a model's memory immediately.
func (c *OllamaClient) Unload(ctx context.Context, name string) error {
	return c.keepAlive(ctx, name, "0", "invoker.ollama.unload")
}

func (c *OllamaClient) keepAlive(ctx context.Context, name, duration, op string) error {
	body, _ := json.Marshal(map[string]any{
		"model":      name,
		"keep_alive": duration,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fault.Wrap(fault.KindInternal, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fault.Wrap(fault.KindBackend, op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fault.New(fault.KindBackend, op, "generate for %s returned %d", name, resp.StatusCode)
	}
	return nil
}

// Ping reports whether the daemon answers at all.
func (c *OllamaClient) Ping(ctx context.Context) error {
	if _, err := c.List(ctx); err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	return nil
}
