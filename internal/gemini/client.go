// Package gemini wraps the Google Gemini API behind a small text-generation
// client. Retries, backoff, and timeouts inside the API call are whatever the
// SDK provides; this package adds none of its own.
package gemini

import (
	"context"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/finsight/finsight/internal/fault"
)

// Client generates text with a fixed model and temperature.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// New creates a Client for the given API key and model.
func New(ctx context.Context, apiKey, model string, temperature float64) (*Client, error) {
	if apiKey == "" {
		return nil, fault.New(fault.Configuration, "gemini: missing API key")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fault.Wrap(fault.Configuration, err, "gemini: initializing client")
	}
	return &Client{client: c, model: model, temperature: float32(temperature)}, nil
}

// Generate sends the prompt to the model and returns the response text.
// system, when non-empty, is installed as the system instruction.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(c.temperature)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fault.Wrap(fault.ExternalService, err, "gemini: generate")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fault.New(fault.ExternalService, "gemini: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fault.New(fault.ExternalService, "gemini: response contained no text parts")
	}
	return sb.String(), nil
}

// Close releases the underlying SDK client.
func (c *Client) Close() error {
	return c.client.Close()
}
