package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrMissingAPIKey is returned before any request is issued when no
	// credential is configured.
	ErrMissingAPIKey = errors.New("vision api key is not configured")

	// ErrTimeout is returned when the inference call does not complete
	// within the client timeout. It maps to a different HTTP status than
	// other transport failures.
	ErrTimeout = errors.New("vision api request timed out")
)

// ProviderError is returned when the inference provider responds with a
// non-success status. The status is forwarded to the eventual HTTP response
// where sensible.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("vision api error (status %d): %s", e.Status, e.Message)
}

type ClientOpts struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat-completions API with the image
// embedded as a data URI. One attempt per request, no retries.
type Client struct {
	httpClient *resty.Client
	apiKey     string
	model      string
}

func NewClient(opts ClientOpts) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient: httpClient,
		apiKey:     opts.APIKey,
		model:      opts.Model,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Infer sends the base64-encoded image and prompt to the model and returns
// the raw text of the first completion choice.
func (c *Client) Infer(ctx context.Context, imageB64, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + imageB64,
					}},
				},
			},
		},
		MaxTokens: 1000,
	}

	result := &chatResponse{}
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(payload).
		SetResult(result).
		Post("/chat/completions")
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("vision api request failed: %w", err)
	}

	if res.IsError() {
		return "", &ProviderError{
			Status:  res.StatusCode(),
			Message: providerMessage(res),
		}
	}

	if len(result.Choices) == 0 {
		return "", errors.New("empty response from vision api")
	}
	return result.Choices[0].Message.Content, nil
}

func providerMessage(res *resty.Response) string {
	var body errorResponse
	if err := json.Unmarshal(res.Body(), &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return res.Status()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
