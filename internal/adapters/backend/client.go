// Package backend is the JSON/HTTP client for the ladder battle API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/pkg/logger"
	"github.com/okian/arenasync/pkg/metrics"
)

// Endpoint paths relative to the base URL.
const (
	currentPath  = "/api/ladder/battles/current/"
	battlePath   = "/api/ladder/battles/%s/"
	betPath      = "/api/ladder/bet/"
	maxBodyBytes = 4 << 20

	defaultTimeout = 5 * time.Second
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	token   string
	timeout time.Duration
	http    *http.Client

	logger logger.Logger
}

// New returns a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:    u,
		timeout: defaultTimeout,
		logger:  logger.Get().Named("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// Current fetches the battle that is open for betting or next to start.
// It returns an error matching ErrNotFound when no battle is scheduled.
func (c *Client) Current(ctx context.Context) (model.ScheduledEvent, error) {
	var ev model.ScheduledEvent
	status, body, err := c.do(ctx, http.MethodGet, currentPath, nil)
	if err != nil {
		return ev, err
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusNotFound && !isErrorBody(body):
		// a bare {"message": ...} means no battle; {"error": ...} is a real failure
		return ev, ErrNotFound
	default:
		return ev, statusError(status, body)
	}

	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode current battle: %w", err)
	}
	return ev, nil
}

// ByID fetches a battle by id. Any 404 is reported as ErrNotFound.
func (c *Client) ByID(ctx context.Context, id model.ID) (model.ScheduledEvent, error) {
	var ev model.ScheduledEvent
	if id == "" {
		return ev, fmt.Errorf("by id: %w", ErrEmptyID)
	}

	status, body, err := c.do(ctx, http.MethodGet, fmt.Sprintf(battlePath, url.PathEscape(id.String())), nil)
	if err != nil {
		return ev, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return ev, ErrNotFound
	default:
		return ev, statusError(status, body)
	}

	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode battle %s: %w", id, err)
	}
	return ev, nil
}

type betRequest struct {
	BattleID  model.ID        `json:"battle_id"`
	FighterID model.ID        `json:"fighter_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type betResponse struct {
	Message string           `json:"message"`
	Bet     model.Commitment `json:"bet"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// PlaceBet commits amount on choiceID for eventID. A refusal is returned as
// *model.CommitError.
func (c *Client) PlaceBet(ctx context.Context, eventID, choiceID model.ID, amount decimal.Decimal) (model.Commitment, error) {
	payload, err := json.Marshal(betRequest{BattleID: eventID, FighterID: choiceID, Amount: amount})
	if err != nil {
		return model.Commitment{}, fmt.Errorf("encode bet: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, betPath, payload)
	if err != nil {
		return model.Commitment{}, err
	}
	if status < 200 || status > 299 {
		return model.Commitment{}, model.NewCommitError(status, errorMessage(body))
	}

	var resp betResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Commitment{}, fmt.Errorf("decode bet: %w", err)
	}
	if resp.Bet.EventID == "" {
		resp.Bet.EventID = eventID
	}
	resp.Bet.PotentialPayout = resp.Bet.ExpectedPayout()
	return resp.Bet, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("backend", "transport")
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	c.logger.Debug(ctx, "backend call",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("latency", time.Since(start)),
	)
	return resp.StatusCode, body, nil
}

func isErrorBody(body []byte) bool {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	return e.Error != ""
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch {
	case e.Error != "":
		return e.Error
	case e.Detail != "":
		return e.Detail
	default:
		return e.Message
	}
}

func statusError(status int, body []byte) error {
	err := &StatusError{Status: status, Message: errorMessage(body)}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errors.Join(err, model.ErrUnauthorized)
	}
	return err
}
