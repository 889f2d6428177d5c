package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/nz_walks/pkg/logging"
	"github.com/Skotchmaster/nz_walks/pkg/tokens"
)

const (
	DefaultRenewBefore = 60 * time.Second

	minRenewDelay = time.Second
	idlePoll      = 30 * time.Second
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired, login required")
)

// StatusError is returned when the API answers with an unexpected status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

type Session struct {
	AccessToken  string
	RefreshToken string
}

type tokenPair struct {
	JWTToken     string `json:"JWTToken"`
	RefreshToken string `json:"RefreshToken"`
}

type tokenRequest struct {
	JwtToken     string `json:"JwtToken"`
	RefreshToken string `json:"RefreshToken"`
}

// Client keeps an API session alive. Access tokens are renewed shortly before
// they expire, concurrent renewals share one request, and a request rejected
// with 401 is retried once after a renewal.
type Client struct {
	baseURL    string
	httpClient *http.Client

	RenewBefore time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time

	mu      sync.RWMutex
	session *Session

	flight singleflight.Group
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		RenewBefore: DefaultRenewBefore,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
}

func (c *Client) clear() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

// fresh reports whether the access token stays valid for longer than
// RenewBefore. The signature is not checked; the server does that.
func (c *Client) fresh(s Session) bool {
	exp, err := tokens.ExpiryUnverified(s.AccessToken)
	if err != nil {
		return false
	}
	return exp.Sub(c.now()) > c.RenewBefore
}

func (c *Client) postJSON(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func readStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

func decodePair(resp *http.Response) (Session, error) {
	var p tokenPair
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Session{}, fmt.Errorf("decode response: %w", err)
	}
	if p.JWTToken == "" || p.RefreshToken == "" {
		return Session{}, errors.New("response carries no token pair")
	}
	return Session{AccessToken: p.JWTToken, RefreshToken: p.RefreshToken}, nil
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	resp, err := c.postJSON(ctx, "/api/Auth/Login", map[string]string{"Email": email, "Password": password}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	s, err := decodePair(resp)
	if err != nil {
		return err
	}
	c.SetSession(s)
	return nil
}

// EnsureFresh renews the session when the access token is about to expire.
func (c *Client) EnsureFresh(ctx context.Context) error {
	s, ok := c.Session()
	if !ok {
		return ErrNoSession
	}
	if c.fresh(s) {
		return nil
	}
	return c.refresh(ctx, s.AccessToken, false)
}

// Refresh renews the session unconditionally.
func (c *Client) Refresh(ctx context.Context) error {
	s, ok := c.Session()
	if !ok {
		return ErrNoSession
	}
	return c.refresh(ctx, s.AccessToken, true)
}

// refresh exchanges the refresh token for a new pair. stale is the access
// token the caller saw; if the session moved on since, another caller already
// renewed it and the used refresh token must not be sent again.
func (c *Client) refresh(ctx context.Context, stale string, force bool) error {
	_, err, _ := c.flight.Do("refresh", func() (any, error) {
		s, ok := c.Session()
		if !ok {
			return nil, ErrNoSession
		}
		if s.AccessToken != stale || (!force && c.fresh(s)) {
			return nil, nil
		}

		resp, err := c.postJSON(context.WithoutCancel(ctx), "/api/Auth/Refresh-Token",
			tokenRequest{JwtToken: s.AccessToken, RefreshToken: s.RefreshToken}, "")
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := readStatusError(resp)
			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
				c.clear()
				logging.FromContext(ctx).Warn("session_refresh_rejected", "status", resp.StatusCode, "error", statusErr)
				return nil, fmt.Errorf("%w: %w", ErrSessionExpired, statusErr)
			}
			return nil, statusErr
		}

		next, err := decodePair(resp)
		if err != nil {
			return nil, err
		}
		c.SetSession(next)
		return nil, nil
	})
	return err
}

// Do sends req with the session's bearer token. A 401 triggers one renewal
// and one retry; requests with a body are only retried when req.GetBody is set.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := c.EnsureFresh(ctx); err != nil {
		return nil, err
	}

	s, ok := c.Session()
	if !ok {
		return nil, ErrNoSession
	}
	resp, err := c.send(req, s.AccessToken)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}
	resp.Body.Close()

	if err := c.refresh(ctx, s.AccessToken, true); err != nil {
		return nil, err
	}
	s, ok = c.Session()
	if !ok {
		return nil, ErrSessionExpired
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind body: %w", err)
		}
		retry.Body = body
	}
	return c.send(retry, s.AccessToken)
}

func (c *Client) send(req *http.Request, access string) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+access)
	return c.httpClient.Do(out)
}

// Logout revokes the refresh token server-side and always drops the local
// session, even when the server cannot be reached. The endpoint wants a live
// access token, so a stale one is renewed first.
func (c *Client) Logout(ctx context.Context) error {
	if _, ok := c.Session(); !ok {
		return nil
	}
	if err := c.EnsureFresh(ctx); err != nil {
		c.clear()
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNoSession) {
			// Nothing left to revoke.
			return nil
		}
		return err
	}
	s, ok := c.Session()
	if !ok {
		return nil
	}
	c.clear()

	resp, err := c.postJSON(ctx, "/api/Auth/Logout", tokenRequest{JwtToken: s.AccessToken, RefreshToken: s.RefreshToken}, s.AccessToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	return nil
}

func (c *Client) untilRenewal() time.Duration {
	s, ok := c.Session()
	if !ok {
		return idlePoll
	}
	exp, err := tokens.ExpiryUnverified(s.AccessToken)
	if err != nil {
		return minRenewDelay
	}
	return max(exp.Sub(c.now())-c.RenewBefore, minRenewDelay)
}

// StartAutoRefresh renews the session in the background until ctx ends.
func (c *Client) StartAutoRefresh(ctx context.Context) {
	l := logging.FromContext(ctx)
	go func() {
		timer := time.NewTimer(c.untilRenewal())
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if err := c.EnsureFresh(ctx); err != nil && !errors.Is(err, ErrNoSession) {
					l.Warn("auto_refresh_failed", "error", err)
				}
				timer.Reset(c.untilRenewal())
			}
		}
	}()
}
