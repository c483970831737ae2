// Package translate passes display text through an external translation service.
package translate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Translator converts text to the language identified by lang (e.g. "hi", "te").
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// IsSource reports whether lang is the language texts are written in.
func IsSource(lang string) bool {
	l := strings.ToLower(strings.TrimSpace(lang))
	return l == "" || l == "en"
}

// Passthrough returns text unchanged.
type Passthrough struct{}

func (Passthrough) Translate(_ context.Context, text, _ string) (string, error) { return text, nil }

// HTTPTranslator calls a LibreTranslate-style endpoint:
// POST {base}/translate {"q","source","target"} -> {"translatedText"}.
type HTTPTranslator struct {
	client *resty.Client
}

func NewHTTPTranslator(baseURL string, timeout time.Duration) *HTTPTranslator {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(1)
	return &HTTPTranslator{client: c}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate is a no-op for English or empty text. On failure the original
// text is returned together with the error.
func (t *HTTPTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	if IsSource(lang) || strings.TrimSpace(text) == "" {
		return text, nil
	}
	var out translateResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(translateRequest{Q: text, Source: "en", Target: lang}).
		SetResult(&out).
		Post("/translate")
	if err != nil {
		return text, fmt.Errorf("translate: %w", err)
	}
	if resp.IsError() {
		return text, fmt.Errorf("translate: upstream status %d", resp.StatusCode())
	}
	if out.TranslatedText == "" {
		return text, nil
	}
	return out.TranslatedText, nil
}

// Text translates text, logging and swallowing errors. Display code never
// fails because translation is unavailable.
func Text(ctx context.Context, tr Translator, text, lang string) string {
	if tr == nil || IsSource(lang) {
		return text
	}
	out, err := tr.Translate(ctx, text, lang)
	if err != nil {
		log.Printf("translate: lang=%s: %v", lang, err)
		return text
	}
	return out
}
