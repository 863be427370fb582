// Package capture is the HTTP adapter for the document capture service that
// turns a capture reference into identity fields.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"safeballot/internal/upstream"
	"safeballot/internal/verification"
)

const service = "capture"

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ verification.IdentityCapture = (*Client)(nil)

// wireRecord accepts both camelCase and snake_case field names.
type wireRecord struct {
	FullName       string `json:"fullName"`
	FullNameSnake  string `json:"full_name"`
	FirstName      string `json:"firstName"`
	FirstNameSnake string `json:"first_name"`
	LastName       string `json:"lastName"`
	LastNameSnake  string `json:"last_name"`
	BirthDate      string `json:"birthDate"`
	BirthDateSnake string `json:"date_of_birth"`
	Document       string `json:"documentNumber"`
	DocumentSnake  string `json:"document_number"`
	Nationality    string `json:"nationality"`
	Citizenship    string `json:"citizenship"`
}

func (w wireRecord) record() verification.IdentityRecord {
	pick := func(a, b string) string {
		if a != "" {
			return strings.TrimSpace(a)
		}
		return strings.TrimSpace(b)
	}
	return verification.IdentityRecord{
		FullName:       pick(w.FullName, w.FullNameSnake),
		FirstName:      pick(w.FirstName, w.FirstNameSnake),
		LastName:       pick(w.LastName, w.LastNameSnake),
		BirthDate:      pick(w.BirthDate, w.BirthDateSnake),
		DocumentNumber: pick(w.Document, w.DocumentSnake),
		Nationality:    pick(w.Nationality, w.Citizenship),
	}
}

func (c *Client) Extract(ctx context.Context, captureRef string) (verification.IdentityRecord, error) {
	payload, err := json.Marshal(map[string]string{"captureRef": captureRef})
	if err != nil {
		return verification.IdentityRecord{}, upstream.NewError(upstream.CategoryInternal, service, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/identity/extract", bytes.NewReader(payload))
	if err != nil {
		return verification.IdentityRecord{}, upstream.NewError(upstream.CategoryInternal, service, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return verification.IdentityRecord{}, upstream.FromTransport(service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return verification.IdentityRecord{}, upstream.FromTransport(service, err)
	}
	c.logger.DebugContext(ctx, "capture extract",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return verification.IdentityRecord{}, upstream.FromStatus(service, resp.StatusCode, "")
	}

	var env struct {
		Data *wireRecord `json:"data"`
		wireRecord
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return verification.IdentityRecord{}, upstream.NewError(upstream.CategoryBadData, service, "extract response is not JSON", err)
	}
	rec := env.wireRecord.record()
	if env.Data != nil {
		rec = env.Data.record()
	}
	if rec.IsEmpty() {
		return verification.IdentityRecord{}, upstream.NewError(upstream.CategoryBadData, service, "no identity fields extracted", nil)
	}
	return rec, nil
}
