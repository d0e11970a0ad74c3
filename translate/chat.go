package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/conner-olsen/eu5-mod-devkit/langtab"
)

// DefaultSystemPrompt instructs an OpenAI-compatible model to behave as a
// literal game-localization translator. {{sourceLang}} and {{targetLang}}
// are replaced per call.
const DefaultSystemPrompt = `You are a professional translator for video game localization, translating UI and event text from {{sourceLang}} to {{targetLang}}.

REQUIREMENTS:
- Translate for naturalness in {{targetLang}}, not word-for-word.
- Preserve every [VAR_n] marker exactly as written, in a position natural for {{targetLang}}.
- Preserve leading/trailing punctuation patterns.
- Keep proper nouns unchanged.
- Return ONLY the translated text, no explanations or markdown.`

var chatMarkdownFence = regexp.MustCompile("(?s)```(?:[a-z]*)\\s*(.*?)\\s*```")

// ChatProvider is a translation backend speaking the OpenAI chat/completions
// protocol, covering self-hosted endpoints such as Ollama as well as hosted
// OpenAI-compatible services.
type ChatProvider struct {
	// BaseURL is the API base URL (e.g. "http://localhost:11434/v1").
	BaseURL string
	// APIKey is optional for local endpoints.
	APIKey string
	// Model is the model identifier.
	Model string
	// SystemPrompt overrides DefaultSystemPrompt when set.
	SystemPrompt string
	// HTTPClient defaults to a client with a 120s timeout.
	HTTPClient *http.Client
	// MaxRetries bounds retries on rate limits and server errors. Default 3.
	MaxRetries int
	// RetryDelay is the base backoff delay. Default 1s.
	RetryDelay time.Duration
}

// NewChatProvider returns a provider for an OpenAI-compatible endpoint.
func NewChatProvider(baseURL, apiKey, model string) *ChatProvider {
	return &ChatProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
	}
}

// ID implements Provider.
func (p *ChatProvider) ID() string {
	return "openai"
}

func (p *ChatProvider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}

func (p *ChatProvider) maxRetries() int {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return 3
}

func (p *ChatProvider) retryDelay(attempt int) time.Duration {
	base := p.RetryDelay
	if base <= 0 {
		base = time.Second
	}
	return time.Duration(math.Pow(2, float64(attempt))) * base
}

func (p *ChatProvider) prompt(sourceLang, targetLang string) (string, error) {
	src, ok := langtab.Lookup(sourceLang)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, sourceLang)
	}
	dst, ok := langtab.Lookup(targetLang)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, targetLang)
	}

	prompt := p.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	prompt = strings.ReplaceAll(prompt, "{{sourceLang}}", src.Name)
	prompt = strings.ReplaceAll(prompt, "{{targetLang}}", dst.Name)
	return prompt, nil
}

// Translate implements Provider.
func (p *ChatProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	systemPrompt, err := p.prompt(sourceLang, targetLang)
	if err != nil {
		return "", err
	}

	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	body, err := json.Marshal(struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: p.Model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	endpoint := strings.TrimRight(p.BaseURL, "/")
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}

	client := p.client()
	maxRetries := p.maxRetries()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if p.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.APIKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if werr := sleepCtx(ctx, p.retryDelay(attempt)); werr != nil {
					return "", werr
				}
				continue
			}
			return "", &ProviderError{Provider: p.ID(), Message: err.Error()}
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", &ProviderError{
				Provider: p.ID(), Status: resp.StatusCode,
				Message: truncate(string(respBody), 300), Err: ErrAuth,
			}

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if attempt < maxRetries {
				if werr := sleepCtx(ctx, p.retryDelay(attempt)); werr != nil {
					return "", werr
				}
				continue
			}
			return "", &ProviderError{
				Provider: p.ID(), Status: resp.StatusCode,
				Message: truncate(string(respBody), 300),
			}

		case resp.StatusCode != http.StatusOK:
			return "", &ProviderError{
				Provider: p.ID(), Status: resp.StatusCode,
				Message: truncate(string(respBody), 300),
			}
		}

		return parseChatResponse(respBody)
	}

	return "", &ProviderError{Provider: p.ID(), Message: fmt.Sprintf("exhausted all %d retries", maxRetries)}
}

// parseChatResponse extracts choices[0].message.content and strips any
// markdown fences the model wrapped around it.
func parseChatResponse(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response: %s", truncate(string(body), 300))
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if m := chatMarkdownFence.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	return strings.TrimSpace(content), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
