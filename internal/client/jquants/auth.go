package jquants

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quotepanel/internal/cache"
	"quotepanel/internal/logger"
	"quotepanel/internal/retry"
)

const (
	refreshParam     = "refreshtoken"
	tokenCachePrefix = "jquants:idtoken:"
	tokenExpirySlack = 5 * time.Minute
)

// AuthError is fatal for the pipeline: bad credential, a rejected refresh or
// a refresh that kept failing after every retry.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("jquants auth: http %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("jquants auth: %s: %v", e.Message, e.Err)
	default:
		return "jquants auth: " + e.Message
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// TokenProvider exchanges the refresh credential for an idToken and caches the
// result until shortly before it expires.
type TokenProvider struct {
	BaseURL      string
	RefreshToken string
	HTTP         *http.Client
	Cache        cache.Store
	Policy       retry.Policy
	// FallbackTTL is used when the idToken carries no readable exp claim.
	FallbackTTL time.Duration
	Logger      *zap.Logger

	group singleflight.Group
	now   func() time.Time
}

type refreshResponse struct {
	IDToken string `json:"idToken"`
}

func NewTokenProvider(baseURL, refreshToken string, httpClient *http.Client, store cache.Store, log *zap.Logger) *TokenProvider {
	p := &TokenProvider{
		BaseURL:      baseURL,
		RefreshToken: refreshToken,
		HTTP:         httpClient,
		Cache:        store,
		FallbackTTL:  23 * time.Hour,
		Logger:       log,
		Policy: retry.Policy{
			Attempts: 3,
			Timeout:  10 * time.Second,
			Backoff:  retry.Linear(300 * time.Millisecond),
		},
	}
	return p
}

func (p *TokenProvider) IDToken(ctx context.Context) (string, error) {
	refresh := strings.TrimSpace(p.RefreshToken)
	if refresh == "" {
		return "", &AuthError{Message: "refresh token is not configured"}
	}
	key := p.cacheKey()
	if p.Cache != nil {
		if b, ok, err := p.Cache.Get(ctx, key); err == nil && ok && len(b) > 0 {
			return string(b), nil
		} else if err != nil && p.Logger != nil {
			p.Logger.Warn("jquants token cache read failed", zap.Error(err))
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	// The refresh is shared by every waiting caller, so it must outlive the
	// one that started it. Per-attempt timeouts still bound it.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		token, err := p.refresh(shared, refresh)
		if err != nil {
			return "", err
		}
		if ttl := p.ttlFor(token); p.Cache != nil && ttl > 0 {
			if err := p.Cache.Set(shared, key, []byte(token), ttl); err != nil && p.Logger != nil {
				p.Logger.Warn("jquants token cache write failed", zap.Error(err))
			}
		}
		return token, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (p *TokenProvider) Invalidate(ctx context.Context) error {
	if p.Cache == nil {
		return nil
	}
	return p.Cache.Delete(ctx, p.cacheKey())
}

func (p *TokenProvider) refresh(ctx context.Context, refresh string) (string, error) {
	policy := p.Policy
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		if p.Logger != nil {
			p.Logger.Warn("jquants token refresh attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("attempts", policy.Attempts),
				zap.Error(err),
			)
		}
		if userHook != nil {
			userHook(attempt, err)
		}
	}

	var token string
	err := policy.Do(ctx, func(ctx context.Context) error {
		t, err := p.requestToken(ctx, refresh)
		if err != nil {
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if p.Logger != nil {
			p.Logger.Error("jquants token refresh failed", zap.Error(err))
		}
		return "", &AuthError{Message: "refresh failed", Err: err}
	}
	return token, nil
}

func (p *TokenProvider) requestToken(ctx context.Context, refresh string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	q := url.Values{}
	q.Set(refreshParam, refresh)
	endpoint := base + "/token/auth_refresh?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	if err != nil {
		return "", retry.Permanent(&AuthError{Message: "build refresh request", Err: redactErr(err)})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return "", redactErr(err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", retry.Permanent(&AuthError{Status: resp.StatusCode, Message: truncate(string(b), 200)})
	}
	var rr refreshResponse
	if err := json.Unmarshal(b, &rr); err != nil {
		return "", retry.Permanent(&AuthError{Message: "decode refresh response", Err: err})
	}
	token := strings.TrimSpace(rr.IDToken)
	if token == "" {
		return "", retry.Permanent(&AuthError{Message: "idToken missing from refresh response"})
	}
	return token, nil
}

// ttlFor reads the exp claim without verifying the signature; the token is
// only inspected to decide how long to cache it. Zero means do not cache.
func (p *TokenProvider) ttlFor(token string) time.Duration {
	fallback := p.FallbackTTL
	if fallback <= 0 {
		fallback = 23 * time.Hour
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	ttl := exp.Sub(p.clock()) - tokenExpirySlack
	if ttl <= 0 {
		return 0
	}
	return ttl
}

func (p *TokenProvider) cacheKey() string {
	sum := sha1.Sum([]byte(strings.TrimSpace(p.RefreshToken)))
	return tokenCachePrefix + hex.EncodeToString(sum[:])[:12]
}

func (p *TokenProvider) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *TokenProvider) httpClient() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// redactErr strips the refresh credential from url.Error messages.
func redactErr(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = logger.RedactURL(ue.URL, refreshParam)
	}
	return err
}
