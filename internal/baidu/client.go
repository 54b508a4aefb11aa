// Package baidu is a client for the Baidu general text translation API.
package baidu

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/folio/internal/logger"
)

const (
	// DefaultEndpoint is the public API host
	DefaultEndpoint = "http://api.fanyi.baidu.com"

	translatePath = "/api/trans/vip/translate"

	// DefaultTimeout matches the API's own request deadline
	DefaultTimeout = 10 * time.Second

	// DefaultMaxChars is the safe per-request length; the API rejects URLs over 2048 bytes
	DefaultMaxChars = 1500

	successCode = "52000"
)

// languageCodes maps ISO 639-1 codes to the API's own codes where they differ
var languageCodes = map[string]string{
	"zh": "zh",
	"en": "en",
	"ja": "jp",
	"ko": "kor",
	"fr": "fra",
	"de": "de",
	"es": "spa",
	"ru": "ru",
	"ar": "ara",
}

// LanguageCode converts a language code to the API's code. Unknown source
// languages fall back to auto detection and unknown targets to Chinese.
func LanguageCode(lang string, source bool) string {
	if source && (lang == "" || lang == "auto") {
		return "auto"
	}
	if code, ok := languageCodes[lang]; ok {
		return code
	}
	if source {
		return "auto"
	}
	return "zh"
}

// APIError is an error reported in the response body
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("baidu translate API error: code %s", e.Code)
	}
	return fmt.Sprintf("baidu translate API error %s: %s", e.Code, e.Message)
}

// Result is a successful translation
type Result struct {
	Text string
	From string
	To   string
}

type response struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	ErrorCode   json.RawMessage `json:"error_code,omitempty"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
	TransResult []struct {
		Src string `json:"src"`
		Dst string `json:"dst"`
	} `json:"trans_result"`
}

// Client signs and sends translation requests
type Client struct {
	appID      string
	appKey     string
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
	salt       func() int
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithEndpoint overrides the API host
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = log
	}
}

// NewClient creates a client for the given credentials
func NewClient(appID, appKey string, opts ...ClientOption) *Client {
	c := &Client{
		appID:      appID,
		appKey:     appKey,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger.Get(),
		salt:       func() int { return 32768 + rand.IntN(32768) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sign computes the request signature md5(appid + q + salt + appkey)
func Sign(appID, query, salt, appKey string) string {
	sum := md5.Sum([]byte(appID + query + salt + appKey))
	return hex.EncodeToString(sum[:])
}

// Translate translates text. from and to are ISO codes and are mapped to the
// API's codes. Multi-line input comes back as one result per line and is
// joined again with newlines.
func (c *Client) Translate(ctx context.Context, text, from, to string) (*Result, error) {
	if c.appID == "" || c.appKey == "" {
		return nil, fmt.Errorf("baidu translate credentials are not configured")
	}

	salt := strconv.Itoa(c.salt())
	form := url.Values{}
	form.Set("appid", c.appID)
	form.Set("q", text)
	form.Set("from", LanguageCode(from, true))
	form.Set("to", LanguageCode(to, false))
	form.Set("salt", salt)
	form.Set("sign", Sign(c.appID, text, salt, c.appKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+translatePath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debugf("Sending translation request, %d characters", len(text))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("baidu translate API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return nil, fmt.Errorf("baidu translate API returned an empty response")
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		c.logger.WithFields("body", preview).Debug("Non-JSON response")
		return nil, fmt.Errorf("baidu translate API returned non-JSON content: %w", err)
	}

	if len(parsed.ErrorCode) > 0 {
		code := strings.Trim(string(parsed.ErrorCode), `"`)
		if code != successCode {
			return nil, &APIError{Code: code, Message: parsed.ErrorMsg}
		}
	}

	if len(parsed.TransResult) == 0 {
		return nil, fmt.Errorf("baidu translate API response has no translation result")
	}

	lines := make([]string, len(parsed.TransResult))
	for i, r := range parsed.TransResult {
		lines[i] = r.Dst
	}

	return &Result{
		Text: strings.Join(lines, "\n"),
		From: parsed.From,
		To:   parsed.To,
	}, nil
}
