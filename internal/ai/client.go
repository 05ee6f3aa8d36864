package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/config"
)

// DescriptionGenerator writes listing copy from seller-provided hints.
// It lives outside the appointment core and never shares its
// serialization points.
type DescriptionGenerator interface {
	GenerateSalePost(ctx context.Context, input GenerateInput) (*GeneratedPost, error)
}

// GenerateInput carries the seller's draft and an optional photo.
type GenerateInput struct {
	Title            string
	Price            int64
	Location         string
	ExtraDescription string
	ImageBase64      string
	ImageMime        string
}

// GeneratedPost is the suggested title and body.
type GeneratedPost struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Client talks to an OpenAI-compatible chat-completions endpoint. When
// the primary model refuses or errors with an image attached, it
// retries text-only on the fallback model.
type Client struct {
	httpClient *http.Client
	cfg        config.AIConfig
	logger     *zap.Logger
}

// NewClient constructs the client.
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		cfg:        cfg,
		logger:     logger,
	}
}

const systemPrompt = `You write sale posts for a secondhand marketplace.
Use the photo and the seller's notes to identify the item precisely.
Produce: 1) a one-line title, 2) a short pricing remark (market rate,
whether haggling is welcome), 3) a detailed description covering
condition, color, features and usage period (write "Usage period:
about N years" when unsure).`

var refusalPattern = regexp.MustCompile(`(?i)i'm sorry|i cannot help|unable to assist`)

// GenerateSalePost produces listing copy. The first line of the model
// output becomes the title, the rest the body.
func (c *Client) GenerateSalePost(ctx context.Context, input GenerateInput) (*GeneratedPost, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("AI_API_KEY is not configured")
	}

	var output string
	var err error
	if input.ImageBase64 != "" {
		output, err = c.complete(ctx, input, true, c.cfg.Model)
		if err != nil {
			c.logger.Warn("image request failed, retrying text-only", zap.Error(err))
		}
	} else {
		output, err = c.complete(ctx, input, false, c.cfg.Model)
	}
	if output == "" || refusalPattern.MatchString(output) {
		output, err = c.complete(ctx, input, false, c.cfg.FallbackModel)
		if err != nil {
			return nil, err
		}
	}

	lines := nonEmptyLines(output)
	if len(lines) == 0 {
		return &GeneratedPost{
			Title: fmt.Sprintf("%s (secondhand)", fallbackTitle(input.Title)),
			Body:  strings.TrimSpace(output),
		}, nil
	}
	return &GeneratedPost{
		Title: strings.TrimSpace(lines[0]),
		Body:  strings.TrimSpace(strings.Join(lines[1:], "\n")),
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
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

func (c *Client) complete(ctx context.Context, input GenerateInput, includeImage bool, model string) (string, error) {
	system := systemPrompt
	if !includeImage {
		system += "\nNo photo was provided; rely on the text alone."
	}

	userText := fmt.Sprintf(`Seller's draft:
- Title: %s
- Asking price: %s
- Location: %s
- Notes: %s`,
		orPlaceholder(input.Title),
		priceText(input.Price),
		orPlaceholder(input.Location),
		orPlaceholder(input.ExtraDescription))

	var userContent any = userText
	if includeImage && input.ImageBase64 != "" {
		mime := input.ImageMime
		if mime == "" {
			mime = "image/jpeg"
		}
		userContent = []contentPart{
			{Type: "text", Text: userText},
			{Type: "image_url", ImageURL: &imageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mime, input.ImageBase64),
			}},
		}
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userContent},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai endpoint returned status %d", resp.StatusCode)
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("ai endpoint returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not provided)"
	}
	return s
}

func priceText(price int64) string {
	if price <= 0 {
		return "(not provided)"
	}
	return fmt.Sprintf("%d won", price)
}

func fallbackTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "New item"
	}
	return title
}
