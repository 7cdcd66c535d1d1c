package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 512

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response is an http.Response with its body already read.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body.
func (r *Response) Body() []byte { return r.body }

// IsError reports a status of 400 or above.
func (r *Response) IsError() bool { return r.StatusCode >= 400 }

// StatusError is returned by DefaultErrorHandler for non-2xx responses.
// Its message carries the status and the start of the body, so provider
// error text survives for classification.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// DefaultErrorHandler rejects every status outside 2xx.
func DefaultErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &StatusError{StatusCode: statusCode, Body: text}
}

type requestBuilder struct {
	c            *InstrumentedClient
	headers      map[string]string
	query        url.Values
	body         any
	result       any
	errorHandler ResponseErrorHandler
	labels       []*Label
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

func (r *requestBuilder) Post(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, path)
}

// SetBody sets the request body; anything but []byte, string and
// io.Reader is JSON encoded.
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, value)
	return r
}

// SetResult decodes a successful JSON response into result.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	c := r.c
	ctx, span := c.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
			attribute.String("provider", c.providerName),
		),
	)
	defer span.End()

	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		r.fail(ctx, span, start, err)
		return nil, err
	}

	fullURL := r.resolve(path)
	bodyReader, err := r.encodeBody(span)
	if err != nil {
		r.fail(ctx, span, start, err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		r.fail(ctx, span, start, err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		r.fail(ctx, span, start, err)
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		r.fail(ctx, span, start, err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if c.traceBodies {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(body))))
	}
	response := &Response{Response: resp, body: body}

	if r.errorHandler != nil {
		if herr := r.errorHandler(resp.StatusCode, body); herr != nil {
			r.fail(ctx, span, start, herr)
			return response, herr
		}
	}

	if r.result != nil && len(body) > 0 && !response.IsError() {
		if err := json.Unmarshal(body, r.result); err != nil {
			r.fail(ctx, span, start, err)
			return response, fmt.Errorf("decode %s response: %w", c.providerName, err)
		}
	}

	r.record(ctx, start, !response.IsError())
	span.SetStatus(codes.Ok, "")
	return response, nil
}

func (r *requestBuilder) resolve(path string) string {
	full := path
	if base := r.c.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + r.query.Encode()
	}
	return full
}

func (r *requestBuilder) encodeBody(span trace.Span) (io.Reader, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	}
	data, err := json.Marshal(r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	if _, ok := r.headers["Content-Type"]; !ok {
		r.headers["Content-Type"] = "application/json"
	}
	if r.c.traceBodies {
		span.AddEvent("request.body", trace.WithAttributes(attribute.String("http.request_body", string(data))))
	}
	return bytes.NewReader(data), nil
}

func (r *requestBuilder) fail(ctx context.Context, span trace.Span, start time.Time, err error) {
	span.RecordError(err)
	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}
	span.SetStatus(codes.Error, err.Error())
	r.record(ctx, start, false)
}

func (r *requestBuilder) record(ctx context.Context, start time.Time, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.c.providerName),
		attribute.Bool("success", success),
	}
	for _, l := range r.labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	opt := metric.WithAttributes(attrs...)
	r.c.requests.Add(ctx, 1, opt)
	r.c.latency.Record(ctx, float64(time.Since(start).Milliseconds()), opt)
}
