package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Mode selects the request body shape sent to the generation endpoint.
type Mode string

const (
	ModeAuto       Mode = "auto"
	ModeCompatible Mode = "compatible"
	ModeNative     Mode = "native"
)

// NoContentText is returned, with a nil error, when a successful response
// carries none of the known text fields.
const NoContentText = "Sorry, the model returned no usable content."

const (
	defaultMaxTokens   = 1500
	defaultTemperature = 0.7
	defaultTopP        = 0.8
	defaultTimeout     = 60 * time.Second
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	BaseURL     string
	APIKey      string
	Mode        Mode
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

type Client struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	mode        Mode
	maxTokens   int
	temperature float64
	topP        float64
}

func NewClient(opts Options) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP <= 0 {
		opts.TopP = defaultTopP
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	mode := resolveMode(opts.Mode, opts.BaseURL)
	endpoint := strings.TrimRight(opts.BaseURL, "/")
	if mode == ModeCompatible && !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		endpoint:    endpoint,
		apiKey:      opts.APIKey,
		mode:        mode,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		topP:        opts.TopP,
	}
}

func resolveMode(mode Mode, baseURL string) Mode {
	switch mode {
	case ModeCompatible, ModeNative:
		return mode
	}
	if strings.Contains(baseURL, "compatible-mode") {
		return ModeCompatible
	}
	return ModeNative
}

func (c *Client) Mode() Mode {
	return c.mode
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

type compatibleRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type nativeRequest struct {
	Model      string           `json:"model"`
	Input      nativeInput      `json:"input"`
	Parameters nativeParameters `json:"parameters"`
}

type nativeInput struct {
	Prompt string `json:"prompt"`
}

type nativeParameters struct {
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	ResultFormat      string  `json:"result_format"`
	IncrementalOutput bool    `json:"incremental_output"`
}

type responseChoice struct {
	Message ChatMessage `json:"message"`
}

// generationResponse covers both the native and the compatible response shapes.
type generationResponse struct {
	Output *struct {
		Text    string           `json:"text"`
		Choices []responseChoice `json:"choices"`
	} `json:"output"`
	Choices []responseChoice `json:"choices"`
}

func (c *Client) buildBody(model, prompt string) interface{} {
	if c.mode == ModeCompatible {
		return compatibleRequest{
			Model:       model,
			Messages:    []ChatMessage{{Role: "user", Content: prompt}},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			TopP:        c.topP,
			Stream:      false,
		}
	}
	return nativeRequest{
		Model: model,
		Input: nativeInput{Prompt: prompt},
		Parameters: nativeParameters{
			MaxTokens:    c.maxTokens,
			Temperature:  c.temperature,
			TopP:         c.topP,
			ResultFormat: "message",
		},
	}
}

// Generate sends one prompt and returns the generated text. Transport and HTTP
// failures come back as *Failure; a 2xx response without usable text yields
// NoContentText and a nil error.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	bodyBytes, err := json.Marshal(c.buildBody(model, prompt))
	if err != nil {
		return "", fmt.Errorf("marshal generation request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &Failure{Kind: FailureConnectivity, Err: fmt.Errorf("build generation request failed: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Failure{Kind: FailureConnectivity, Err: fmt.Errorf("generation request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Failure{Kind: FailureConnectivity, StatusCode: resp.StatusCode, Err: fmt.Errorf("read generation response failed: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return "", &Failure{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("generation response status %d: %s", resp.StatusCode, truncateBody(raw)),
		}
	}

	if text, ok := extractText(raw); ok {
		return text, nil
	}
	return NoContentText, nil
}

// extractText tries output.text, output.choices[0].message.content and
// choices[0].message.content in that order.
func extractText(raw []byte) (string, bool) {
	var parsed generationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false
	}
	if parsed.Output != nil {
		if parsed.Output.Text != "" {
			return parsed.Output.Text, true
		}
		if len(parsed.Output.Choices) > 0 && parsed.Output.Choices[0].Message.Content != "" {
			return parsed.Output.Choices[0].Message.Content, true
		}
	}
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		return parsed.Choices[0].Message.Content, true
	}
	return "", false
}

func truncateBody(raw []byte) string {
	const maxBodyLen = 512
	if len(raw) <= maxBodyLen {
		return string(raw)
	}
	return string(raw[:maxBodyLen]) + "..."
}
