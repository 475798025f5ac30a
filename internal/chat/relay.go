// Package chat relays user messages to the agent and persists a capped
// transcript. The backend is chosen by configuration presence: a gateway
// URL + token selects the HTTP gateway, otherwise the local CLI is used.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/models"
)

// replyTimeout bounds a single backend call.
const replyTimeout = 120 * time.Second

// historyWindow is how many prior transcript entries accompany a gateway
// request for context.
const historyWindow = 20

// Backend produces a reply to a user message given the prior transcript.
type Backend interface {
	Name() string
	Reply(ctx context.Context, message string, history []models.ChatMessage) (string, error)
}

// GatewayBackend calls an OpenAI-compatible chat-completions endpoint.
type GatewayBackend struct {
	URL     string
	Token   string
	Model   string
	AgentID string
	Client  *http.Client
}

// Name identifies the backend on the API surface.
func (g *GatewayBackend) Name() string { return "gateway" }

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gatewayRequest struct {
	Model    string           `json:"model"`
	Messages []gatewayMessage `json:"messages"`
	Stream   bool             `json:"stream"`
}

type gatewayResponse struct {
	Choices []struct {
		Message gatewayMessage `json:"message"`
	} `json:"choices"`
}

// Reply posts the trailing history plus the new message to the gateway.
func (g *GatewayBackend) Reply(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	msgs := make([]gatewayMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, gatewayMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, gatewayMessage{Role: models.RoleUser, Content: message})

	body, err := json.Marshal(gatewayRequest{Model: g.Model, Messages: msgs, Stream: false})
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	url := strings.TrimRight(g.URL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-ID", g.AgentID)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: gateway call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("chat: gateway %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "empty reply from assistant", nil
	}
	return out.Choices[0].Message.Content, nil
}

// CLIBackend shells out to the agent's command-line interface in
// non-interactive mode. History is not forwarded; each call is isolated.
type CLIBackend struct {
	Command string
	Args    []string
	Dir     string
}

// Name identifies the backend on the API surface.
func (c *CLIBackend) Name() string { return "cli" }

// Reply invokes the CLI with the message appended to the configured args.
func (c *CLIBackend) Reply(ctx context.Context, message string, _ []models.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	args := append(append([]string{}, c.Args...), message)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = c.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("chat: cli call: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Relay ties a backend to the transcript.
type Relay struct {
	backend    Backend
	transcript *Transcript
}

// NewRelay creates a relay over the given backend and transcript.
func NewRelay(backend Backend, transcript *Transcript) *Relay {
	return &Relay{backend: backend, transcript: transcript}
}

// BackendName reports which backend is active.
func (r *Relay) BackendName() string {
	return r.backend.Name()
}

// Transcript returns the underlying transcript store.
func (r *Relay) Transcript() *Transcript {
	return r.transcript
}

// Send appends the user message, asks the backend for a reply, and
// appends the assistant message. A backend failure is surfaced inside the
// assistant message rather than failing the exchange: the transcript
// records what the user saw.
func (r *Relay) Send(ctx context.Context, message string) (models.ChatMessage, []models.ChatMessage, error) {
	message = strings.TrimSpace(message)

	history, err := r.transcript.List()
	if err != nil {
		return models.ChatMessage{}, nil, err
	}

	userMsg := r.transcript.newMessage(models.RoleUser, message)

	reply, replyErr := r.backend.Reply(ctx, message, history)
	if replyErr != nil {
		detail := replyErr.Error()
		if len(detail) > 200 {
			detail = detail[:200]
		}
		reply = "execution error: " + detail
	}

	assistantMsg := r.transcript.newMessage(models.RoleAssistant, reply)
	all, err := r.transcript.Append(userMsg, assistantMsg)
	if err != nil {
		return models.ChatMessage{}, nil, err
	}
	return assistantMsg, all, nil
}
