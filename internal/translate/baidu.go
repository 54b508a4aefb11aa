package translate

import (
	"context"

	"github.com/platinummonkey/folio/internal/baidu"
	"github.com/platinummonkey/folio/internal/chunker"
)

// BaiduProvider translates through the Baidu general translation API
type BaiduProvider struct {
	client   *baidu.Client
	maxChars int
}

// NewBaiduProvider wraps client. maxChars bounds a single request.
func NewBaiduProvider(client *baidu.Client, maxChars int) *BaiduProvider {
	if maxChars <= 0 {
		maxChars = baidu.DefaultMaxChars
	}
	return &BaiduProvider{client: client, maxChars: maxChars}
}

// Translate implements Provider
func (b *BaiduProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	res, err := b.client.Translate(ctx, req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		return nil, err
	}
	return &Response{Text: res.Text, DetectedLang: res.From}, nil
}

// Capacity is the per-request character limit
func (b *BaiduProvider) Capacity() chunker.Capacity {
	return chunker.CharCapacity(b.maxChars)
}

// Name returns the provider name
func (b *BaiduProvider) Name() string {
	return string(ProviderBaidu)
}
