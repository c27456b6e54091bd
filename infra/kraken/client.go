// Package kraken implements gateway.Gateway against the Octopus Energy
// Kraken GraphQL API.
package kraken

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

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kilianp07/smartcharge/core/gateway"
	"github.com/kilianp07/smartcharge/core/logger"
)

// DefaultURL is the public GraphQL endpoint.
const DefaultURL = "https://api.octopus.energy/v1/graphql/"

// Config configures a Client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// RateLimit caps requests per second; zero disables pacing.
	RateLimit float64
	Burst     int
}

// Client talks GraphQL over HTTPS. The Kraken token is obtained lazily and
// cached until a retryable failure forces a new session.
type Client struct {
	url     string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     logger.Logger

	// mu guards token only; fetches run outside it through tokens.
	mu     sync.Mutex
	token  *oauth2.Token
	tokens singleflight.Group
}

// New creates a Client. The API key is mandatory.
func New(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("kraken: API key is not set")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Client{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     logger.OrNop(log),
	}, nil
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []QueryError    `json:"errors"`
}

// QueryError is one entry of a GraphQL "errors" array.
type QueryError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		ErrorType        string `json:"errorType,omitempty"`
		ErrorCode        string `json:"errorCode,omitempty"`
		ErrorDescription string `json:"errorDescription,omitempty"`
	} `json:"extensions"`
}

// Error renders the error as "<errorDescription>: <message> [<errorCode>]",
// omitting the parts the provider left empty.
func (e QueryError) Error() string {
	var b strings.Builder
	if d := strings.TrimRight(e.Extensions.ErrorDescription, "."); d != "" {
		b.WriteString(d)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Extensions.ErrorCode != "" {
		fmt.Fprintf(&b, " [%s]", e.Extensions.ErrorCode)
	}
	return b.String()
}

// Kraken codes that mean the token or key was rejected.
var authErrorCodes = map[string]bool{
	"KT-CT-1111": true, // unauthorized
	"KT-CT-1112": true, // missing authorization header
	"KT-CT-1124": true, // token expired
	"KT-CT-1139": true, // authentication failed
	"KT-CT-1143": true, // invalid token
}

func classify(errs []QueryError) gateway.Kind {
	for _, e := range errs {
		if authErrorCodes[e.Extensions.ErrorCode] || strings.EqualFold(e.Extensions.ErrorType, "AUTHORIZATION") {
			return gateway.KindAuth
		}
	}
	return gateway.KindQuery
}

func joinErrors(errs []QueryError) error {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return errors.New(strings.Join(parts, "; "))
}

// execute runs op with the cached session and retries once with a new
// session when the failure is retryable.
func (c *Client) execute(ctx context.Context, op, query string, vars map[string]any, out any) error {
	err := c.executeOnce(ctx, false, op, query, vars, out)
	if err == nil || !gateway.IsRetryable(err) || ctx.Err() != nil {
		return err
	}
	c.log.Warnf("%s failed, retrying with a new session: %v", op, err)
	return c.executeOnce(ctx, true, op, query, vars, out)
}

func (c *Client) executeOnce(ctx context.Context, reset bool, op, query string, vars map[string]any, out any) error {
	token, err := c.session(ctx, reset)
	if err != nil {
		return err
	}
	return c.do(ctx, token, op, query, vars, out)
}

type tokenPayload struct {
	Exp int64 `json:"exp"`
}

// session returns the cached token while it is valid. Tokens are renewed
// shortly before the expiry announced in their payload. Concurrent callers
// share one in-flight fetch and each stops waiting when its own ctx ends.
func (c *Client) session(ctx context.Context, reset bool) (string, error) {
	c.mu.Lock()
	if reset {
		c.token = nil
	}
	if c.token != nil && c.token.Valid() {
		tok := c.token.AccessToken
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.tokens.DoChan(opToken, func() (any, error) {
		return c.obtainToken(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return "", &gateway.Error{Kind: gateway.KindNetwork, Op: opToken, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) obtainToken(ctx context.Context) (string, error) {
	var out struct {
		ObtainKrakenToken struct {
			Token        string        `json:"token"`
			Payload      *tokenPayload `json:"payload"`
			RefreshToken string        `json:"refreshToken"`
		} `json:"obtainKrakenToken"`
	}
	if err := c.do(ctx, "", opToken, mutationToken, map[string]any{"apiKey": c.apiKey}, &out); err != nil {
		return "", err
	}
	res := out.ObtainKrakenToken
	if res.Token == "" {
		return "", &gateway.Error{Kind: gateway.KindAuth, Op: opToken, Err: errors.New("empty token")}
	}
	tok := &oauth2.Token{AccessToken: res.Token, RefreshToken: res.RefreshToken}
	if res.Payload != nil && res.Payload.Exp > 0 {
		tok.Expiry = time.Unix(res.Payload.Exp, 0)
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	c.log.Debugf("obtained new kraken token, expires %v", tok.Expiry)
	return tok.AccessToken, nil
}

func (c *Client) do(ctx context.Context, token, op, query string, vars map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &gateway.Error{Kind: gateway.KindNetwork, Op: op, Err: err}
	}
	body, err := json.Marshal(request{Query: query, OperationName: op, Variables: vars})
	if err != nil {
		return &gateway.Error{Kind: gateway.KindQuery, Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &gateway.Error{Kind: gateway.KindQuery, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &gateway.Error{Kind: gateway.KindNetwork, Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warnf("close response body: %v", cerr)
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &gateway.Error{Kind: gateway.KindNetwork, Op: op, Err: err}
	}

	var gr response
	decodeErr := json.Unmarshal(data, &gr)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &gateway.Error{Kind: gateway.KindAuth, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return &gateway.Error{Kind: gateway.KindNetwork, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case decodeErr == nil && len(gr.Errors) > 0:
		return &gateway.Error{Kind: classify(gr.Errors), Op: op, Err: joinErrors(gr.Errors)}
	case resp.StatusCode != http.StatusOK:
		return &gateway.Error{Kind: gateway.KindQuery, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case decodeErr != nil:
		return &gateway.Error{Kind: gateway.KindQuery, Op: op, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return &gateway.Error{Kind: gateway.KindQuery, Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
