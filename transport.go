package fract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pthm/fract/lib/codec"
)

// RequestOptions tunes a single Send or SendForm call.
type RequestOptions struct {
	// Method defaults to GET for Send and to the form's method for SendForm.
	Method string
	// Header is merged over the client's default headers.
	Header http.Header
	// Body and ContentType describe the request payload. SendForm fills
	// them from the form unless Body is set.
	Body        io.Reader
	ContentType string
	// URL overrides the form's action in SendForm. Ignored by Send.
	URL string
}

// Reply describes the outcome of a request.
type Reply struct {
	StatusCode int
	Header     http.Header
	// Envelope is nil for non-2xx responses and empty bodies.
	Envelope *Envelope
	Outcome  Outcome
	// ApplyErr holds the component failures reported by the applier.
	ApplyErr error
}

// OK reports whether the server answered with a 2xx status.
func (r *Reply) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
	header     http.Header
	accept     string
	verifier   *codec.Signer
	logger     *zap.Logger
}

// WithHTTPClient sets the HTTP client used for requests.
// Defaults to http.DefaultClient.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = base
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(o *clientOptions) {
		o.header.Add(key, value)
	}
}

// WithAccept sets the default Accept header. Defaults to application/json;
// pass codec.Msgpack to ask for MessagePack envelopes.
func WithAccept(accept string) ClientOption {
	return func(o *clientOptions) {
		if accept != "" {
			o.accept = accept
		}
	}
}

// WithVerifier makes the client reject envelopes whose X-Fract-Signature
// does not verify against s.
func WithVerifier(s *codec.Signer) ClientOption {
	return func(o *clientOptions) {
		o.verifier = s
	}
}

// WithClientLogger sets the transport logger. Defaults to the applier's.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// Client issues requests and applies the envelopes they return.
//
// Requests are independent: overlapping calls are neither deduplicated nor
// ordered, and whichever reply is applied last wins.
type Client[N any] struct {
	applier *Applier[N]
	opts    clientOptions
}

// NewClient creates a client that feeds replies into applier.
func NewClient[N any](applier *Applier[N], opts ...ClientOption) *Client[N] {
	o := clientOptions{
		httpClient: http.DefaultClient,
		header:     http.Header{},
		accept:     codec.JSON,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = applier.Logger()
	}
	return &Client[N]{applier: applier, opts: o}
}

// Applier returns the applier replies are fed into.
func (c *Client[N]) Applier() *Applier[N] {
	return c.applier
}

// Send requests rawURL and applies the returned envelope.
//
// Transport failures are logged and returned. A non-2xx status is logged
// and reported through Reply with a nil error: check Reply.OK when the
// status matters. Component failures end up in Reply.ApplyErr.
func (c *Client[N]) Send(ctx context.Context, rawURL string, opts *RequestOptions) (*Reply, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	target, err := c.resolve(rawURL)
	if err != nil {
		c.opts.logger.Error("invalid request url", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, opts.Body)
	if err != nil {
		c.opts.logger.Error("cannot build request", zap.String("url", target), zap.Error(err))
		return nil, fmt.Errorf("fract: build request: %w", err)
	}
	for k, vs := range c.opts.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range opts.Header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", c.opts.accept)
	}
	if opts.Body != nil && opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	req.Header.Set(RequestHeader, "true")

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		c.opts.logger.Error("request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, fmt.Errorf("fract: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	reply := &Reply{StatusCode: resp.StatusCode, Header: resp.Header}
	if !reply.OK() {
		c.opts.logger.Error("error response returned",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
		)
		_, _ = io.Copy(io.Discard, resp.Body)
		return reply, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.opts.logger.Error("cannot read response", zap.String("url", target), zap.Error(err))
		return reply, fmt.Errorf("fract: read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return reply, nil
	}

	if c.opts.verifier != nil {
		if err := c.opts.verifier.Verify(body, resp.Header.Get(codec.SignatureHeader)); err != nil {
			c.opts.logger.Error("envelope rejected", zap.String("url", target), zap.Error(err))
			return reply, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
	}

	env, err := DecodeEnvelope(resp.Header.Get("Content-Type"), body)
	if err != nil {
		c.opts.logger.Error("cannot decode envelope", zap.String("url", target), zap.Error(err))
		return reply, err
	}
	reply.Envelope = env
	reply.Outcome, reply.ApplyErr = c.applier.Apply(ctx, env)
	return reply, nil
}

// SendForm submits a form element from the document and applies the reply.
//
// The URL, method and encoding come from the form's action, method and
// enctype attributes; opts may override each of them. GET forms send their
// values in the query string, other methods in the body. An optional
// submitter (the clicked button) contributes its own name and value.
func (c *Client[N]) SendForm(ctx context.Context, form N, opts *RequestOptions, submitter ...N) (*Reply, error) {
	reader, ok := any(c.applier.Document()).(FormReader[N])
	if !ok {
		return nil, ErrNoFormReader
	}

	var sub *N
	if len(submitter) > 0 {
		sub = &submitter[0]
	}
	f, err := reader.ReadForm(ctx, form, sub)
	if err != nil {
		c.opts.logger.Error("cannot read form", zap.Error(err))
		return nil, fmt.Errorf("fract: read form: %w", err)
	}

	o := RequestOptions{}
	if opts != nil {
		o = *opts
	}
	target := f.Action
	if o.URL != "" {
		target = o.URL
	}
	if o.Method == "" {
		o.Method = f.Method
	}
	if o.Method == "" {
		o.Method = http.MethodGet
	}
	o.Method = strings.ToUpper(o.Method)

	if o.Body == nil {
		switch {
		case o.Method == http.MethodGet || o.Method == http.MethodHead:
			target, err = withQuery(target, f.Values)
			if err != nil {
				return nil, err
			}
		case f.Enctype == "multipart/form-data":
			o.Body, o.ContentType, err = multipartBody(f.Values)
			if err != nil {
				return nil, err
			}
		default:
			o.Body = strings.NewReader(f.Values.Encode())
			o.ContentType = "application/x-www-form-urlencoded"
		}
	}
	return c.Send(ctx, target, &o)
}

func (c *Client[N]) resolve(rawURL string) (string, error) {
	if c.opts.baseURL == "" {
		return rawURL, nil
	}
	base, err := url.Parse(c.opts.baseURL)
	if err != nil {
		return "", fmt.Errorf("fract: base url: %w", err)
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("fract: url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// withQuery replaces the query of target with values, as browsers do for
// GET forms.
func withQuery(target string, values url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("fract: form action: %w", err)
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func multipartBody(values url.Values) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range values[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
