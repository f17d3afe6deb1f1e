package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
)

const (
	DefaultModelID = "gpt-4o-mini"
	DefaultBaseURL = "https://models.inference.ai.azure.com"
)

const systemInstructions = "You are a document summarization assistant. " +
	"Given the contents of a document, produce a concise summary of its key points. " +
	"Use bullet points where appropriate. " +
	"If the document is empty or unintelligible, say so."

// ErrEmptyCompletion is returned when the model answers without content.
var ErrEmptyCompletion = errors.New("model returned no summary")

// ChatConfig configures a ChatSummarizer.
type ChatConfig struct {
	Token   string
	ModelID string
	BaseURL string
	Timeout time.Duration
}

// ChatSummarizer summarizes with an OpenAI-compatible chat completion API,
// GitHub Models by default.
type ChatSummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewChatSummarizer creates a summarizer.
func NewChatSummarizer(cfg ChatConfig) *ChatSummarizer {
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	clientCfg := openai.DefaultConfig(cfg.Token)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &ChatSummarizer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.ModelID,
		timeout: cfg.Timeout,
	}
}

// Summarize implements Summarizer.
func (s *ChatSummarizer) Summarize(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstructions},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(req)},
		},
	})
	metrics.RecordModelRequest(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// Prompt builds the user message for req.
func Prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please summarise the following document (filename: %s):\n\n%s", req.Filename, req.Text)
	if req.Truncated {
		b.WriteString("\n\n(The document was truncated; summarise the part shown.)")
	}
	if req.Language != "" && req.Language != "English" {
		fmt.Fprintf(&b, "\n\nThe document appears to be written in %s.", req.Language)
	}
	return b.String()
}
