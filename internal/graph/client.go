// Package graph is a thin Microsoft Graph client for OneDrive and SharePoint
// document libraries. It translates Graph drive items and sites into the
// values in package models.
package graph

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
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
	"github.com/LeonardHd/maf-onedrive-integration/internal/retry"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Client calls Graph on behalf of one credential.
type Client struct {
	baseURL     string
	httpClient  *http.Client // adds the bearer token, does not follow redirects
	plainClient *http.Client // for pre-authenticated download URLs
	retryConfig retry.Config
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config

	// Transport carries requests for every client built with it. Servers
	// creating a client per request should share one; nil builds a new one.
	Transport http.RoundTripper
}

// NewTransport returns the connection pool clients share.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// New creates a client that authenticates with tokens from ts.
func New(ts oauth2.TokenSource, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}

	base := cfg.Transport
	if base == nil {
		base = NewTransport()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: base},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		plainClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: base,
		},
		retryConfig: cfg.RetryConfig,
	}
}

// request describes one Graph call.
type request struct {
	op          string // metric/log label
	method      string
	path        string // already escaped, relative to baseURL
	query       url.Values
	body        []byte
	contentType string
}

// send performs the call with throttling retries and returns the final response.
// The caller owns resp.Body. Non-2xx/3xx statuses are returned as *RemoteError.
func (c *Client) send(ctx context.Context, req request) (resp *http.Response, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordGraphOperation(req.op, time.Since(start), err == nil)
	}()

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	return retry.DoWithResult(ctx, c.retryConfig, func() (*http.Response, error) {
		var body io.Reader
		if req.body != nil {
			body = bytes.NewReader(req.body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
		if err != nil {
			return nil, err
		}
		if req.contentType != "" {
			httpReq.Header.Set("Content-Type", req.contentType)
		}
		httpReq.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}

		remoteErr := decodeError(req.op, resp)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			logging.Warn("graph throttled",
				zap.String("op", req.op),
				zap.Int("status", resp.StatusCode))
			return nil, retry.RetryableAfter(remoteErr, retryAfter(resp.Header.Get("Retry-After")))
		}
		return nil, remoteErr
	})
}

// getJSON performs a call and decodes a JSON body into out.
// An empty body leaves out untouched.
func (c *Client) getJSON(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("graph %s: decode response: %w", req.op, err)
	}
	return nil
}

func decodeError(op string, resp *http.Response) *RemoteError {
	remoteErr := &RemoteError{Op: op, StatusCode: resp.StatusCode}
	var env errorEnvelope
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &env) == nil {
		remoteErr.Code = env.Error.Code
		remoteErr.Message = env.Error.Message
	}
	return remoteErr
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// escapePath escapes each segment of a drive-relative path.
func escapePath(p string) string {
	p = strings.Trim(p, "/")
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func drivePath(driveID string) string {
	return "/drives/" + url.PathEscape(driveID)
}

func itemPath(driveID, itemID string) string {
	if itemID == "" {
		itemID = "root"
	}
	return drivePath(driveID) + "/items/" + url.PathEscape(itemID)
}
