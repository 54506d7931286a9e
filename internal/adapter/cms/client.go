package cms

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

	"github.com/niksmo/storefront/pkg/retry"
)

var ErrUnexpectedResponse = errors.New("unexpected cms response")

// A StatusError is a non 2xx answer of the content API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cms responded %d: %s", e.Code, e.Body)
}

// ClientConfig used for setup [Client].
//
// BaseURL overrides the project API host, mostly for tests.
type ClientConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.RetryConfig
}

// A Client talks to the headless CMS query and mutation HTTP API.
type Client struct {
	http    *http.Client
	apiURL  string
	dataset string
	token   string
	retry   retry.RetryConfig
}

func NewClient(config ClientConfig) (*Client, error) {
	const op = "cms.NewClient"

	if config.Dataset == "" {
		return nil, fmt.Errorf("%s: dataset is empty", op)
	}

	base := config.BaseURL
	if base == "" {
		if config.ProjectID == "" {
			return nil, fmt.Errorf("%s: project id is empty", op)
		}
		base = fmt.Sprintf("https://%s.api.sanity.io", config.ProjectID)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	version := strings.TrimPrefix(config.APIVersion, "v")
	if version == "" {
		version = "2024-01-01"
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	rc := config.Retry
	if rc.ShouldRetry == nil {
		rc.ShouldRetry = isTemporary
	}

	return &Client{
		http:    httpClient,
		apiURL:  strings.TrimRight(base, "/") + "/v" + version,
		dataset: config.Dataset,
		token:   config.Token,
		retry:   rc,
	}, nil
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

// query runs a GROQ query, params are bound as $name.
// A null result leaves out untouched and reports false.
func (c *Client) query(
	ctx context.Context, groq string, params map[string]any, out any,
) (bool, error) {
	q := url.Values{}
	q.Set("query", groq)
	for name, v := range params {
		b, err := json.Marshal(v)
		if err != nil {
			return false, err
		}
		q.Set("$"+name, string(b))
	}

	endpoint := fmt.Sprintf(
		"%s/data/query/%s?%s",
		c.apiURL, url.PathEscape(c.dataset), q.Encode(),
	)

	var res queryResponse
	err := c.do(ctx, c.retry, http.MethodGet, endpoint, nil, &res)
	if err != nil {
		return false, err
	}

	if len(res.Result) == 0 || string(res.Result) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	return true, nil
}

type (
	mutation map[string]any

	mutateRequest struct {
		Mutations []mutation `json:"mutations"`
	}

	mutateResponse struct {
		TransactionID string `json:"transactionId"`
		Results       []struct {
			ID        string `json:"id"`
			Operation string `json:"operation"`
		} `json:"results"`
	}
)

func (c *Client) mutate(
	ctx context.Context, ms ...mutation,
) (mutateResponse, error) {
	endpoint := fmt.Sprintf(
		"%s/data/mutate/%s?returnIds=true&visibility=sync",
		c.apiURL, url.PathEscape(c.dataset),
	)

	body, err := json.Marshal(mutateRequest{Mutations: ms})
	if err != nil {
		return mutateResponse{}, err
	}

	// a failed mutation may have been applied, only throttling is retried
	rc := c.retry
	rc.ShouldRetry = isThrottled

	var res mutateResponse
	if err := c.do(ctx, rc, http.MethodPost, endpoint, body, &res); err != nil {
		return mutateResponse{}, err
	}
	return res, nil
}

func (c *Client) do(
	ctx context.Context,
	rc retry.RetryConfig,
	method, endpoint string,
	body []byte,
	out any,
) error {
	return retry.Do(ctx, rc, func() error {
		return c.roundTrip(ctx, method, endpoint, body, out)
	})
}

func (c *Client) roundTrip(
	ctx context.Context, method, endpoint string, body []byte, out any,
) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	return nil
}

// isTemporary retries transport failures, throttling and server errors.
func isTemporary(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrUnexpectedResponse) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

func isThrottled(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}
