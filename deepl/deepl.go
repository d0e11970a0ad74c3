// Package deepl implements a DeepL REST API v2 client that satisfies the
// translate.Provider contract.
//
// The endpoint is selected from the auth key: keys ending in ":fx" belong to
// the free tier (api-free.deepl.com), all others to the pro tier. Error
// mapping follows DeepL's documented status codes: 401/403 authentication,
// 456 quota exhausted, 429 and 5xx transient (retried with backoff).
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conner-olsen/eu5-mod-devkit/langtab"
	"github.com/conner-olsen/eu5-mod-devkit/translate"
)

// API endpoints per tier.
const (
	ProEndpoint  = "https://api.deepl.com/v2/translate"
	FreeEndpoint = "https://api-free.deepl.com/v2/translate"
)

// freeKeySuffix marks DeepL free-tier auth keys.
const freeKeySuffix = ":fx"

// Client calls the DeepL translate endpoint.
type Client struct {
	// AuthKey is the DeepL API authentication key.
	AuthKey string
	// Endpoint overrides the tier-derived endpoint (used in tests).
	Endpoint string
	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client
	// MaxRetries bounds retries on rate limits and server errors. Default 3.
	MaxRetries int
	// RetryDelay is the base backoff delay. Default 1s.
	RetryDelay time.Duration
}

// New returns a client for the given auth key, picking the free or pro
// endpoint from the key's suffix.
func New(authKey string) *Client {
	endpoint := ProEndpoint
	if strings.HasSuffix(authKey, freeKeySuffix) {
		endpoint = FreeEndpoint
	}
	return &Client{AuthKey: authKey, Endpoint: endpoint}
}

// ID implements translate.Provider.
func (c *Client) ID() string {
	return "deepl"
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (c *Client) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 3
}

func (c *Client) retryDelay(attempt int) time.Duration {
	base := c.RetryDelay
	if base <= 0 {
		base = time.Second
	}
	return time.Duration(math.Pow(2, float64(attempt))) * base
}

// sourceCode maps a localization folder to a DeepL source code. DeepL only
// accepts base codes on the source side ("PT", not "PT-BR").
func sourceCode(folder string) (string, error) {
	l, ok := langtab.Lookup(folder)
	if !ok {
		return "", fmt.Errorf("%w: %q", translate.ErrUnsupportedLanguage, folder)
	}
	code, _, _ := strings.Cut(l.DeepL, "-")
	return code, nil
}

func targetCode(folder string) (string, error) {
	l, ok := langtab.Lookup(folder)
	if !ok {
		return "", fmt.Errorf("%w: %q", translate.ErrUnsupportedLanguage, folder)
	}
	return l.DeepL, nil
}

// Translate implements translate.Provider.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	src, err := sourceCode(sourceLang)
	if err != nil {
		return "", err
	}
	dst, err := targetCode(targetLang)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("source_lang", src)
	form.Set("target_lang", dst)
	form.Set("preserve_formatting", "1")
	body := form.Encode()

	client := c.client()
	maxRetries := c.maxRetries()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "DeepL-Auth-Key "+c.AuthKey)

		resp, err := client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if werr := wait(ctx, c.retryDelay(attempt)); werr != nil {
					return "", werr
				}
				continue
			}
			return "", &translate.ProviderError{Provider: c.ID(), Message: err.Error()}
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return parseResponse(respBody)

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", &translate.ProviderError{
				Provider: c.ID(), Status: resp.StatusCode,
				Message: snip(respBody), Err: translate.ErrAuth,
			}

		case resp.StatusCode == 456:
			return "", &translate.ProviderError{
				Provider: c.ID(), Status: resp.StatusCode,
				Message: snip(respBody), Err: translate.ErrQuota,
			}

		case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(respBody), "lang"):
			return "", &translate.ProviderError{
				Provider: c.ID(), Status: resp.StatusCode,
				Message: snip(respBody), Err: translate.ErrUnsupportedLanguage,
			}

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if attempt < maxRetries {
				if werr := wait(ctx, c.retryDelay(attempt)); werr != nil {
					return "", werr
				}
				continue
			}
			return "", &translate.ProviderError{
				Provider: c.ID(), Status: resp.StatusCode, Message: snip(respBody),
			}

		default:
			return "", &translate.ProviderError{
				Provider: c.ID(), Status: resp.StatusCode, Message: snip(respBody),
			}
		}
	}

	return "", &translate.ProviderError{Provider: c.ID(), Message: fmt.Sprintf("exhausted all %d retries", maxRetries)}
}

func parseResponse(body []byte) (string, error) {
	var parsed struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("empty translations in response: %s", snip(body))
	}
	return parsed.Translations[0].Text, nil
}

func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func snip(body []byte) string {
	s := string(body)
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
