// Package generate synthesizes derivative blog posts from scraped source
// posts using an OpenAI-compatible API.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/post"
)

// ErrNoSources is returned when generation is requested with an empty source
// set.
var ErrNoSources = errors.New("no source posts provided")

// Client talks to an OpenAI-compatible chat-completions and image API.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	imageModel string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a generation client. baseURL may point at any
// OpenAI-compatible endpoint.
func NewClient(baseURL, apiKey, chatModel, imageModel string, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chatModel:  chatModel,
		imageModel: imageModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

// GeneratePost synthesizes a new pending post from the given source posts:
// title, then content, then summary, then a featured image. Image failures
// are non-fatal; the post is returned without an image and a warning is
// logged.
func (c *Client) GeneratePost(ctx context.Context, sources []post.Post) (*post.GeneratedPost, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	sourceContext := buildSourceContext(sources)

	title, err := c.chat(ctx,
		"You are a legal technology expert who writes engaging blog titles.",
		fmt.Sprintf("Based on these source materials, generate an engaging title for a new blog post:\n\n%s\n\nThe title should be SEO-friendly and appeal to law firm professionals. Respond with the title only.", sourceContext))
	if err != nil {
		return nil, fmt.Errorf("failed to generate title: %w", err)
	}
	title = strings.Trim(title, `"`)

	content, err := c.chat(ctx,
		"You are a legal technology expert who writes comprehensive, engaging blog posts.",
		fmt.Sprintf("Write a comprehensive blog post with this title: %q\n\nUse these source materials for reference:\n%s\n\nThe post should be well-structured with headers, include practical insights, be around 1500-2000 words, and be written in a professional but engaging tone. Format the post in markdown.", title, sourceContext))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	summary, err := c.chat(ctx,
		"Create a concise, engaging summary of this blog post in 2-3 sentences.",
		content)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	imageURL := ""
	imagePrompt, err := c.chat(ctx,
		"Create a detailed image prompt that would make a good featured image for this blog post.",
		fmt.Sprintf("Title: %s\n\nSummary: %s", title, summary))
	if err == nil {
		imageURL, err = c.generateImage(ctx, imagePrompt)
	}
	if err != nil {
		c.log.Warn("image generation failed, continuing without image", "error", err)
	}

	refs := make([]string, 0, len(sources))
	for _, p := range sources {
		refs = append(refs, p.URL)
	}

	now := time.Now()
	return &post.GeneratedPost{
		ID:               post.Slug(title),
		Title:            title,
		Content:          content,
		Summary:          summary,
		ImageURL:         imageURL,
		SourceReferences: refs,
		Status:           post.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func buildSourceContext(sources []post.Post) string {
	var b strings.Builder
	for _, p := range sources {
		fmt.Fprintf(&b, "Title: %s\nSummary: %s\nURL: %s\n\n", p.Title, p.Summary, p.URL)
	}
	return b.String()
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	}

	var parsed chatResponse
	if err := c.post(ctx, "/v1/chat/completions", payload, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) generateImage(ctx context.Context, prompt string) (string, error) {
	payload := imageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		Size:   "1792x1024",
		N:      1,
	}

	var parsed imageResponse
	if err := c.post(ctx, "/v1/images/generations", payload, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Data) == 0 {
		return "", errors.New("empty image response")
	}
	return parsed.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + path
	if strings.HasSuffix(c.baseURL, "/v1") {
		endpoint = c.baseURL + strings.TrimPrefix(path, "/v1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call generation API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("generation API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
