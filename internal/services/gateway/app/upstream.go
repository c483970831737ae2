package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrNotConfigured is returned by an upstream without base URL.
var ErrNotConfigured = errors.New("upstream not configured")

// Upstream incapsula chiamate HTTP con Circuit Breaker e ultimo risultato valido.
type Upstream struct {
	name    string
	path    string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker

	mu       sync.RWMutex
	lastGood map[string][]byte // per query string
}

// NewUpstream costruisce un client verso un servizio a monte
func NewUpstream(name, base, path string, timeout time.Duration, breaker *gobreaker.CircuitBreaker) *Upstream {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	var client *resty.Client
	if base != "" {
		client = resty.New().SetBaseURL(base).SetTimeout(timeout)
	}
	return &Upstream{
		name:     name,
		path:     path,
		client:   client,
		breaker:  breaker,
		lastGood: make(map[string][]byte),
	}
}

// GetJSON esegue la GET sotto breaker e decodifica JSON in out. Se la chiamata
// fallisce (o il breaker è aperto) usa l'ultimo risultato valido e ritorna
// stale=true; err è non nil solo quando non c'è nulla da servire.
func (u *Upstream) GetJSON(ctx context.Context, query url.Values, out any) (stale bool, err error) {
	if u == nil || u.client == nil {
		// upstream opzionale non configurato: lasciamo out invariato
		return false, ErrNotConfigured
	}
	key := query.Encode()

	res, err := u.breaker.Execute(func() (interface{}, error) {
		resp, err := u.client.R().
			SetContext(ctx).
			SetQueryParamsFromValues(query).
			SetHeader("Accept", "application/json").
			Get(u.path)
		if err != nil {
			return nil, fmt.Errorf("%s request error: %w", u.name, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%s upstream status %d", u.name, resp.StatusCode())
		}
		body := resp.Body()
		if !json.Valid(body) {
			return nil, fmt.Errorf("%s decode error: invalid JSON", u.name)
		}
		return body, nil
	})
	if err == nil {
		body := res.([]byte)
		if derr := json.Unmarshal(body, out); derr != nil {
			return false, fmt.Errorf("%s decode error: %w", u.name, derr)
		}
		u.mu.Lock()
		u.lastGood[key] = append([]byte(nil), body...)
		u.mu.Unlock()
		return false, nil
	}

	u.mu.RLock()
	cached, ok := u.lastGood[key]
	u.mu.RUnlock()
	if !ok {
		return false, err
	}
	if derr := json.Unmarshal(cached, out); derr != nil {
		return false, err
	}
	return true, nil
}

// State returns the breaker state name.
func (u *Upstream) State() string {
	if u == nil || u.breaker == nil {
		return "n/a"
	}
	return u.breaker.State().String()
}
