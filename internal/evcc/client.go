package evcc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"evcc-charge-report/internal/report/domain"
)

// DataSourceError wraps any failure to obtain session data from the
// evcc instance: network, auth, or a malformed payload.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string { return fmt.Sprintf("evcc: %s: %v", e.Op, e.Err) }
func (e *DataSourceError) Unwrap() error { return e.Err }

// Client is a minimal evcc REST client.
type Client struct {
	baseURL  string
	password string
	client   *http.Client
}

// NewClient constructs an evcc client. The login cookie from the auth
// endpoint lives in the client's jar for the duration of the run.
func NewClient(baseURL, password string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("evcc: empty base url")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		password: password,
		client:   &http.Client{Timeout: 10 * time.Second, Jar: jar},
	}, nil
}

// session is the evcc sessions payload shape.
type session struct {
	Created    string       `json:"created"`
	Finished   string       `json:"finished"`
	Loadpoint  string       `json:"loadpoint"`
	Vehicle    string       `json:"vehicle"`
	ChargedKWh json.Number  `json:"chargedEnergy"`
	Price      *json.Number `json:"price"`
}

// Sessions fetches the charging sessions recorded for year/month.
func (c *Client) Sessions(ctx context.Context, year, month int) ([]domain.RawSession, error) {
	if c.password != "" {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	path := fmt.Sprintf("/api/sessions?lang=en&year=%d&month=%d", year, month)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &DataSourceError{Op: "build sessions request", Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &DataSourceError{Op: "fetch sessions", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &DataSourceError{Op: "fetch sessions", Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DataSourceError{Op: "read sessions body", Err: err}
	}
	payload, err := decodeSessions(body)
	if err != nil {
		return nil, &DataSourceError{Op: "decode sessions", Err: err}
	}

	raw := make([]domain.RawSession, len(payload))
	for i := range payload {
		raw[i] = &sessionAdapter{payload: payload[i]}
	}
	return raw, nil
}

func (c *Client) login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"password": c.password})
	if err != nil {
		return &DataSourceError{Op: "login", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return &DataSourceError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return &DataSourceError{Op: "login", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &DataSourceError{Op: "login", Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	return nil
}

// decodeSessions accepts both the bare array and the {"result": [...]}
// envelope evcc versions differ on. An object without a result list is
// malformed, not an empty month.
func decodeSessions(data []byte) ([]session, error) {
	var list []session
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Result) == 0 || bytes.Equal(envelope.Result, []byte("null")) {
		return nil, errors.New("response carries no session list")
	}
	if err := json.Unmarshal(envelope.Result, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// sessionAdapter exposes the evcc payload through the domain's narrow
// RawSession capability.
type sessionAdapter struct {
	payload session
}

func (a *sessionAdapter) StartTime() time.Time {
	t, err := time.Parse(time.RFC3339, a.payload.Created)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (a *sessionAdapter) FinishTime() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, a.payload.Finished)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (a *sessionAdapter) Energy() (decimal.Decimal, bool) {
	if a.payload.ChargedKWh == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(a.payload.ChargedKWh.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (a *sessionAdapter) Price() (decimal.Decimal, bool) {
	if a.payload.Price == nil || *a.payload.Price == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(a.payload.Price.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (a *sessionAdapter) Loadpoint() string { return a.payload.Loadpoint }
func (a *sessionAdapter) Vehicle() string   { return a.payload.Vehicle }
