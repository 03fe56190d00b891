package invoker

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"maestro/internal/fault"
	"maestro/internal/logging"
	"maestro/internal/metrics"
)

const defaultInvokeTimeout = 120 * time.Second

// Subprocess invokes a model by spawning the local daemon's run command
// with the prompt on stdin and reading stdout. Non-zero exit or timeout
// is a BackendFailure.
type Subprocess struct {
	// Command is the daemon binary, "ollama" by default.
	Command string
	log     interface {
		Debugw(msg string, kv ...interface{})
	}
}

// NewSubprocess returns an invoker shelling out to the given command,
// defaulting to "ollama".
func NewSubprocess(command string) *Subprocess {
	if command == "" {
		command = "ollama"
	}
	return &Subprocess{Command: command, log: logging.Get(logging.CategoryInvoker)}
}

func (s *Subprocess) Invoke(ctx context.Context, req Request) (Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultInvokeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, s.Command, "run", req.Model)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		metrics.InvocationsTotal.WithLabelValues(req.Model, "timeout").Inc()
		return Response{}, fault.New(fault.KindBackend, "invoker.subprocess", "model %s timed out after %s", req.Model, timeout)
	}
	if ctx.Err() == context.Canceled {
		return Response{}, fault.Wrap(fault.KindCancelled, "invoker.subprocess", ctx.Err())
	}
	if err != nil {
		metrics.InvocationsTotal.WithLabelValues(req.Model, "error").Inc()
		return Response{}, fault.New(fault.KindBackend, "invoker.subprocess", "%s run %s failed: %v: %s", s.Command, req.Model, err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	s.log.Debugw("subprocess invocation complete", "model", req.Model, "duration", time.Since(start), "bytes", len(text))
	metrics.InvocationsTotal.WithLabelValues(req.Model, "ok").Inc()
	resp := Response{Text: text, InputTokens: approxTokens(prompt), OutputTokens: approxTokens(text)}
	metrics.TokensTotal.WithLabelValues(req.Model, "input").Add(float64(resp.InputTokens))
	metrics.TokensTotal.WithLabelValues(req.Model, "output").Add(float64(resp.OutputTokens))
	return resp, nil
}
