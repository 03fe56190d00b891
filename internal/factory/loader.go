package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"maestro/internal/fault"
)

// OllamaLoader pages models in and out of the daemon's memory through
// /api/generate: an empty prompt warms the model, and keep_alive=0
// releases it immediately.
type OllamaLoader struct {
	BaseURL string
	client  *http.Client
}

// NewOllamaLoader targets the daemon at baseURL, defaulting to the
// standard local port.
func NewOllamaLoader(baseURL string) *OllamaLoader {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaLoader{BaseURL: baseURL, client: &http.Client{}}
}

func (l *OllamaLoader) generate(ctx context.Context, name, keepAlive string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"model":      name,
		"prompt":     "",
		"stream":     false,
		"keep_alive": keepAlive,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fault.Wrap(fault.KindInternal, "factory.loader", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fault.Wrap(fault.KindBackend, "factory.loader", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fault.New(fault.KindBackend, "factory.loader", "daemon returned %d for %s", resp.StatusCode, name)
	}
	return nil
}

func (l *OllamaLoader) Load(ctx context.Context, name string) error {
	return l.generate(ctx, name, "5m")
}

func (l *OllamaLoader) Unload(ctx context.Context, name string) error {
	return l.generate(ctx, name, "0")
}
