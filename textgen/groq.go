package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Groq calls the Groq OpenAI-compatible chat completions API.
type Groq struct {
	httpClient *http.Client
	apiKey     string
}

func NewGroq() *Groq {
	return &Groq{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     os.Getenv("GROQ_API_KEY"),
	}
}

func (g *Groq) Name() string { return "groq" }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Groq) Generate(ctx context.Context, req Request) (string, error) {
	if g.apiKey == "" {
		return "", fallback.Permanent(fmt.Errorf("GROQ_API_KEY not set"))
	}

	body := groqRequest{
		Model: req.Model,
		Messages: []groqMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fallback.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, groqEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fallback.Permanent(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fallback.Transient(fmt.Errorf("groq request: %w", err))
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fallback.Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fallback.FromHTTPStatus(resp.StatusCode, truncate(string(respBytes), 200))
	}

	var parsed groqResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fallback.Transient(fmt.Errorf("parse groq response: %w", err))
	}
	if parsed.Error != nil {
		return "", fallback.Permanent(fmt.Errorf("groq error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", fallback.Transient(fmt.Errorf("groq returned no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
