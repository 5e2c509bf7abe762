// Package client reads the dashboard API over HTTP. Client implements
// inventory.Repository, so the same aggregation cycle runs against a remote
// server as against the database.
package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/shelfsafe/internal/docjson"
	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

// maxBody caps a single response body.
const maxBody = 64 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "GET " + e.Path + ": " + http.StatusText(e.Code)
	}
	return "GET " + e.Path + ": " + http.StatusText(e.Code) + ": " + e.Message
}

// Client talks to one API server.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	tp         trace.TracerProvider
}

// WithHTTPClient replaces the underlying HTTP client. Its transport is used
// as is.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout bounds each request. Defaults to 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTracerProvider traces outgoing requests with tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// New creates a Client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("unsupported scheme %q", base.Scheme)
	}

	o := options{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	hc := o.httpClient
	if hc == nil {
		transportOpts := []otelhttp.Option{}
		if o.tp != nil {
			transportOpts = append(transportOpts, otelhttp.WithTracerProvider(o.tp))
		}
		hc = &http.Client{
			Timeout:   o.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
		}
	}
	return &Client{base: base, http: hc}, nil
}

// Ping calls /api/health and fails unless the server reports ok.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.get(ctx, "/api/health", nil)
	if err != nil {
		return err
	}
	var (
		ok      bool
		message string
	)
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "ok":
			v, err := d.Bool()
			ok = v
			return err
		case "message":
			v, err := d.Str()
			message = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return errors.Wrap(err, "decode health")
	}
	if !ok {
		return errors.Errorf("server unhealthy: %s", message)
	}
	return nil
}

// Products lists every product document.
func (c *Client) Products(ctx context.Context) ([]bson.D, error) {
	return c.list(ctx, "/api/products", nil)
}

// InventoryLots lists every inventory lot document.
func (c *Client) InventoryLots(ctx context.Context) ([]bson.D, error) {
	return c.list(ctx, "/api/inventoryLots", nil)
}

// Attachments lists live attachments narrowed by q.
func (c *Client) Attachments(ctx context.Context, q inventory.AttachmentQuery) ([]bson.D, error) {
	params := url.Values{}
	if q.EntityType != "" {
		params.Set("entityType", q.EntityType)
	}
	if q.EntityID != "" {
		params.Set("entityId", q.EntityID)
	}
	return c.list(ctx, "/api/attachments", params)
}

func (c *Client) list(ctx context.Context, path string, params url.Values) ([]bson.D, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	docs, err := docjson.DecodeArray(body)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	return docs, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.base.JoinPath(path)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Path: path, Code: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts "message" from an error body, if present.
func errorMessage(body []byte) string {
	var message string
	_ = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != "message" {
			return d.Skip()
		}
		v, err := d.Str()
		message = v
		return err
	})
	return message
}
