// Package formclient implements backend.Backend over HTTP. Every call is a
// single multipart/form-data POST: the entity goes in the "controlador" field,
// the action in "action", followed by the payload fields (attachments as file
// parts) and the pagination fields. The reply must be a JSON object.
package formclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/model"
)

const (
	fieldEntity = "controlador"
	fieldAction = "action"

	// defaultFileName is used for attachments that carry no name.
	defaultFileName = "archivo.bin"

	// maxReplySize bounds how much of a reply is read.
	maxReplySize = 32 << 20
)

// Compile-time interface satisfaction check.
var _ backend.Backend = (*Client)(nil)

// Client sends backend calls to a single endpoint URL.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each call. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the logger used for call tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the backend at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call implements backend.Backend.
func (c *Client) Call(ctx context.Context, entity, action string, payload, page model.Payload) (*backend.Response, error) {
	body, contentType, err := encodeForm(entity, action, payload, page)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s %s: %w", entity, action, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call",
		"entity", entity,
		"action", action,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	decoded, err := backend.DecodeResponse(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, fmt.Errorf("%s %s (http %d): %w", entity, action, resp.StatusCode, err)
	}
	return decoded, nil
}

// encodeForm builds the multipart body. Fields are written in sorted order so
// identical calls produce identical bodies; null values are skipped.
func encodeForm(entity, action string, payload, page model.Payload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(fieldEntity, entity); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(fieldAction, action); err != nil {
		return nil, "", err
	}
	if err := writeValues(w, payload); err != nil {
		return nil, "", err
	}
	if err := writeValues(w, page); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeValues(w *multipart.Writer, values model.Payload) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		if v.IsNull() {
			continue
		}
		if a, ok := v.Attachment(); ok {
			if err := writeFile(w, k, a); err != nil {
				return fmt.Errorf("field %s: %w", k, err)
			}
			continue
		}
		if err := w.WriteField(k, v.Text()); err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeFile writes an attachment as a file part carrying its own MIME type,
// which multipart.Writer.CreateFormFile would replace with octet-stream.
func writeFile(w *multipart.Writer, field string, a model.Attachment) error {
	name := a.Name
	if name == "" {
		name = defaultFileName
	}
	contentType := a.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(a.Content)
	return err
}
