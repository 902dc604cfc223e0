package githubapp

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://api.github.com"

	// GitHub ограничивает срок жизни JWT приложения десятью минутами
	appTokenTTL = 10 * time.Minute
	clockSkew   = 60 * time.Second
)

var ErrNoAppKey = errors.New("github app private key is not configured")

// APIError ответ GitHub с кодом не 2xx
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api %s: status %d: %s", e.URL, e.Status, e.Body)
}

type ReviewComment struct {
	Id          int64  `json:"id"`
	Body        string `json:"body"`
	InReplyToId *int64 `json:"in_reply_to_id"`
}

type Client struct {
	endpoint string
	clientID string
	key      *rsa.PrivateKey
	http     *http.Client
	cache    *TokenCache
	log      *zap.Logger
	now      func() time.Time
}

type Config struct {
	Endpoint     string
	ClientID     string
	RSAPemKeyB64 string
	Timeout      time.Duration
}

// NewClient разбирает ключ приложения (PEM в base64). Пустой ключ допустим,
// тогда любые запросы к API завершаются ErrNoAppKey.
func NewClient(cfg Config, cache *TokenCache, log *zap.Logger) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		clientID: cfg.ClientID,
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		log:      log,
		now:      time.Now,
	}

	if cfg.RSAPemKeyB64 != "" {
		pem, err := base64.StdEncoding.DecodeString(cfg.RSAPemKeyB64)
		if err != nil {
			return nil, fmt.Errorf("decode github app key: %w", err)
		}
		key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse github app key: %w", err)
		}
		c.key = key
	}

	return c, nil
}

// Token возвращает токен установки из кэша или запрашивает новый
func (c *Client) Token(ctx context.Context, installationID int64) (string, error) {
	if token, ok := c.cache.Get(installationID); ok {
		return token, nil
	}

	appJWT, err := c.appJWT()
	if err != nil {
		return "", err
	}

	var tok InstallationToken
	path := fmt.Sprintf("/app/installations/%d/access_tokens", installationID)
	if err := c.do(ctx, http.MethodPost, path, appJWT, &tok); err != nil {
		return "", err
	}

	c.cache.Set(installationID, tok)
	c.log.Info("github installation token refreshed",
		zap.Int64("installation_id", installationID),
		zap.Time("expires_at", tok.ExpiresAt),
	)
	return tok.Token, nil
}

func (c *Client) ReviewComments(ctx context.Context, installationID int64, repo string, prNumber int, reviewID int64) ([]ReviewComment, error) {
	token, err := c.Token(ctx, installationID)
	if err != nil {
		return nil, err
	}

	var comments []ReviewComment
	path := fmt.Sprintf("/repos/%s/pulls/%d/reviews/%d/comments", repo, prNumber, reviewID)
	if err := c.do(ctx, http.MethodGet, path, token, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) appJWT() (string, error) {
	if c.key == nil {
		return "", ErrNoAppKey
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.clientID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-clockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, out any) error {
	url := c.endpoint + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("github api request failed",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return &APIError{Status: resp.StatusCode, URL: url, Body: string(body)}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
