// Package fetch performs bounded JSON requests against upstream APIs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"

	"github.com/timzifer/colint/runtime/sources"
)

// MaxBodyBytes bounds upstream payloads when no limit is configured.
const MaxBodyBytes int64 = 2 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request describes a GET request against an upstream.
type Request struct {
	URL       string
	Query     url.Values
	UserAgent string
	BodyLimit int64
}

// GetJSON issues the request and decodes the response body into target.
// Transport errors and non-2xx statuses wrap sources.ErrNetwork, undecodable
// or oversized bodies wrap sources.ErrParse.
func GetJSON(ctx context.Context, client *http.Client, req Request, target any) error {
	body, err := Get(ctx, client, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: decode %s: %v", sources.ErrParse, redact(req.URL), err)
	}
	return nil
}

// Get issues the request and returns the bounded response body.
func Get(ctx context.Context, client *http.Client, req Request) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	target, err := BuildURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", sources.ErrNetwork, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sources.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %s", sources.ErrNetwork, redact(req.URL), resp.Status)
	}
	limit := req.BodyLimit
	if limit <= 0 {
		limit = MaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", sources.ErrNetwork, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", sources.ErrParse, limit)
	}
	return body, nil
}

// BuildURL merges query into the raw URL, keeping parameters already present.
func BuildURL(raw string, query url.Values) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %v", sources.ErrNetwork, raw, err)
	}
	if len(query) == 0 {
		return parsed.String(), nil
	}
	values := parsed.Query()
	for key, vals := range query {
		values.Del(key)
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

func redact(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.User = nil
	return parsed.String()
}
