// Package httpclient is the JSON-over-HTTP adapter for the election backend.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"safeballot/internal/upstream"
)

const (
	serviceBallots = "ballots"
	serviceAuth    = "auth"

	// maxResponseBytes bounds decoded response bodies.
	maxResponseBytes = 4 << 20
)

// Client talks to the backend REST API rooted at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
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

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ upstream.BallotService    = (*Client)(nil)
	_ upstream.AuthService      = (*Client)(nil)
	_ upstream.DirectVoteSender = (*Client)(nil)
)

// envelope is the backend's response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (c *Client) GetBallot(ctx context.Context, ballotID string) (json.RawMessage, error) {
	body, err := c.do(ctx, serviceBallots, http.MethodGet, "/ballots/"+url.PathEscape(ballotID), upstream.Credential{}, nil)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, upstream.NewError(upstream.CategoryBadData, serviceBallots, "ballot response is not JSON", err)
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data, nil
	}
	// Some deployments return the ballot unwrapped.
	return json.RawMessage(body), nil
}

func (c *Client) RegisterVoter(ctx context.Context, ballotID string, voter upstream.VoterDetails) (upstream.RegisterVoterResult, error) {
	req := map[string]any{"voter": voter}
	body, err := c.doJSON(ctx, serviceBallots, "/ballots/"+url.PathEscape(ballotID)+"/public-register-voter", upstream.Credential{}, req)
	if err != nil {
		return upstream.RegisterVoterResult{}, err
	}
	var resp struct {
		Data struct {
			Voter *struct {
				ID string `json:"id"`
			} `json:"voter"`
		} `json:"data"`
		Voter *struct {
			ID string `json:"id"`
		} `json:"voter"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return upstream.RegisterVoterResult{}, upstream.NewError(upstream.CategoryBadData, serviceBallots, "registration response is not JSON", err)
	}
	switch {
	case resp.Data.Voter != nil && resp.Data.Voter.ID != "":
		return upstream.RegisterVoterResult{VoterID: resp.Data.Voter.ID}, nil
	case resp.Voter != nil && resp.Voter.ID != "":
		return upstream.RegisterVoterResult{VoterID: resp.Voter.ID}, nil
	}
	return upstream.RegisterVoterResult{}, upstream.NewError(upstream.CategoryBadData, serviceBallots, "registration response has no voter id", nil)
}

func (c *Client) SendVoterIDEmail(ctx context.Context, ballotID string, voter upstream.VoterDetails) (string, error) {
	body, err := c.doJSON(ctx, serviceBallots, "/ballots/"+url.PathEscape(ballotID)+"/send-voter-id", upstream.Credential{}, voter)
	if err != nil {
		return "", err
	}
	var resp struct {
		VoterID string `json:"voterId"`
		Data    struct {
			VoterID string `json:"voterId"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.VoterID != "" {
		return resp.VoterID, nil
	}
	return resp.Data.VoterID, nil
}

func (c *Client) CastVote(ctx context.Context, cred upstream.Credential, ballotID string, payload upstream.VotePayload) (upstream.CastVoteResult, error) {
	body, err := c.doJSON(ctx, serviceBallots, votePath(ballotID), cred, payload)
	if err != nil {
		return upstream.CastVoteResult{}, err
	}
	var resp struct {
		Data upstream.CastVoteResult `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		// The vote was accepted; only the acknowledgment is unreadable.
		c.logger.WarnContext(ctx, "vote acknowledgment unreadable",
			"ballot_id", ballotID,
			"error", err,
		)
	}
	return resp.Data, nil
}

// PostVote sends a pre-encoded vote body with minimal processing. Any 2xx
// answer counts as accepted.
func (c *Client) PostVote(ctx context.Context, cred upstream.Credential, ballotID string, body []byte) error {
	_, err := c.do(ctx, serviceBallots, http.MethodPost, votePath(ballotID), cred, body)
	return err
}

func (c *Client) GenerateDigitalKey(ctx context.Context, email, ballotID string) (string, error) {
	req := map[string]string{"email": email, "ballot_id": ballotID}
	body, err := c.doJSON(ctx, serviceAuth, "/auth/verify/digital-key", upstream.Credential{}, req)
	if err != nil {
		return "", err
	}
	var resp struct {
		Data struct {
			DigitalKey string `json:"digital_key"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", upstream.NewError(upstream.CategoryBadData, serviceAuth, "digital key response is not JSON", err)
	}
	if resp.Data.DigitalKey == "" {
		return "", upstream.NewError(upstream.CategoryBadData, serviceAuth, "digital key response has no key", nil)
	}
	return resp.Data.DigitalKey, nil
}

func votePath(ballotID string) string {
	return "/ballots/" + url.PathEscape(ballotID) + "/voter-vote"
}

func (c *Client) doJSON(ctx context.Context, service, path string, cred upstream.Credential, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, upstream.NewError(upstream.CategoryInternal, service, "encode request", err)
	}
	return c.do(ctx, service, http.MethodPost, path, cred, payload)
}

// do performs one request. The only credential ever attached is cred.
func (c *Client) do(ctx context.Context, service, method, path string, cred upstream.Credential, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, upstream.NewError(upstream.CategoryInternal, service, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !cred.IsZero() {
		req.Header.Set("Authorization", "Bearer "+cred.BearerToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, upstream.FromTransport(service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, upstream.FromTransport(service, err)
	}

	c.logger.DebugContext(ctx, "upstream call",
		"service", service,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstream.FromStatus(service, resp.StatusCode, serverMessage(data))
	}
	return data, nil
}

// serverMessage extracts the human message from an error body.
func serverMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
		return ""
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 || strings.HasPrefix(msg, "<") {
		return ""
	}
	return msg
}

