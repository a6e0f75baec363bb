package shopapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 8 << 20

// Client talks to the shop backend. Login and Register go out anonymously;
// every other call carries the token from the TokenSource.
type Client struct {
	baseURL string
	anon    *http.Client
	authed  *http.Client
	log     logrus.FieldLogger
}

type Option func(*options)

type options struct {
	transport http.RoundTripper
	timeout   time.Duration
	scheme    AuthScheme
	log       logrus.FieldLogger
}

// WithTransport replaces the base RoundTripper (defaults to http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTimeout sets an upper bound on a whole request including the body read.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithAuthScheme picks the Authorization header format (defaults to AuthRaw).
func WithAuthScheme(s AuthScheme) Option {
	return func(o *options) { o.scheme = s }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	o := options{transport: http.DefaultTransport, scheme: AuthRaw, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	stamped := requestIDTransport{rt: o.transport}
	return &Client{
		baseURL: base,
		anon:    &http.Client{Transport: stamped, Timeout: o.timeout},
		authed:  &http.Client{Transport: authTransport{rt: stamped, tokens: tokens, scheme: o.scheme}, Timeout: o.timeout},
		log:     o.log,
	}, nil
}

// normalizeBaseURL adds a missing scheme and drops the trailing slash.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginReply, error) {
	const op = "login"
	data, status, err := c.do(ctx, op, http.MethodPost, endpointLogin, nil, Credentials{Username: username, Password: password}, false)
	if err != nil {
		return LoginReply{}, err
	}
	env, err := decodeEnvelope(op, data, status)
	if err != nil {
		return LoginReply{}, err
	}
	return LoginReply{Token: env.Token, User: env.User}, nil
}

// Register creates an account. It returns the backend's confirmation text.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	const op = "register"
	data, status, err := c.do(ctx, op, http.MethodPost, endpointRegister, nil, Credentials{Username: username, Password: password}, false)
	if err != nil {
		return "", err
	}
	env, err := decodeEnvelope(op, data, status)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Search runs a filtered catalog search.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]Product, error) {
	const op = "search"
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("category", q.Category)
	params.Set("min_price", formatPrice(q.MinPrice))
	params.Set("max_price", formatPrice(q.MaxPrice))

	data, status, err := c.do(ctx, op, http.MethodGet, endpointSearch, params, nil, true)
	if err != nil {
		return nil, err
	}
	var products []Product
	if err := decodeList(op, data, status, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// Purchase buys one unit of a product and returns the backend's message.
func (c *Client) Purchase(ctx context.Context, productID int64) (string, error) {
	const op = "purchase"
	data, status, err := c.do(ctx, op, http.MethodPost, endpointPurchase, nil, purchaseRequest{ProductID: productID}, true)
	if err != nil {
		return "", err
	}
	env, err := decodeEnvelope(op, data, status)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ChatHistory returns the stored conversation of the session user.
func (c *Client) ChatHistory(ctx context.Context) ([]HistoryEntry, error) {
	const op = "chat_history"
	data, status, err := c.do(ctx, op, http.MethodGet, endpointChatHistory, nil, nil, true)
	if err != nil {
		return nil, err
	}
	var entries []HistoryEntry
	if err := decodeList(op, data, status, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveChat stores one chat line server-side.
func (c *Client) SaveChat(ctx context.Context, message, sender string) error {
	const op = "save_chat"
	data, status, err := c.do(ctx, op, http.MethodPost, endpointSaveChat, nil, saveChatRequest{Message: message, Sender: sender}, true)
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(op, data, status)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body interface{}, authorized bool) ([]byte, int, error) {
	var rdr io.Reader
	if body != nil {
		b, err := sonic.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.anon
	if authorized {
		hc = c.authed
	}
	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op, "error": err}).Warn("backend request failed")
		return nil, 0, networkError(op, err)
	}
	defer func(b io.ReadCloser) {
		_ = b.Close()
	}(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, networkError(op, err)
	}
	c.log.WithFields(logrus.Fields{
		"op":      op,
		"status":  resp.StatusCode,
		"elapsed": time.Since(started).Round(time.Millisecond),
	}).Debug("backend request done")
	return data, resp.StatusCode, nil
}

// decodeEnvelope parses a {success, message} reply. The backend pairs
// failures with 4xx/5xx but always sends the envelope, so the status code
// is only reported, not trusted.
func decodeEnvelope(op string, data []byte, status int) (envelope, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return envelope{}, protocolError(op, status, "malformed reply: %v", err)
	}
	if !env.Success {
		return envelope{}, applicationError(op, status, env.Message)
	}
	return env, nil
}

// decodeList expects a JSON array. An error envelope in its place is an
// application failure; anything else is a protocol violation.
func decodeList(op string, data []byte, status int, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := sonic.Unmarshal(trimmed, out); err != nil {
			return protocolError(op, status, "malformed list: %v", err)
		}
		return nil
	}
	var env envelope
	if err := sonic.Unmarshal(trimmed, &env); err == nil && !env.Success && env.Message != "" {
		return applicationError(op, status, env.Message)
	}
	return protocolError(op, status, "expected a JSON array")
}
