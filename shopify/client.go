// Package shopify fetches a store's SEO-relevant content through the Admin
// GraphQL API and materializes it as an audit.ResourceSet.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIVersion = "2024-10"

// Credentials identify one store for the duration of a fetch. The access
// token comes from the caller verbatim; OAuth is owned by the embedding app.
type Credentials struct {
	Shop  string `json:"shop"`
	Token string `json:"token"`
}

// Client is a thin Admin GraphQL client. Safe for concurrent use.
type Client struct {
	client     *http.Client
	apiVersion string
	pageSize   int
	scheme     string
}

// New creates a Client with a connection-pooled transport.
func New() *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
		apiVersion: defaultAPIVersion,
		pageSize:   50,
		scheme:     "https",
	}
}

// SetAPIVersion overrides the Admin API version used in request URLs.
func (c *Client) SetAPIVersion(version string) {
	if version != "" {
		c.apiVersion = version
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

func (c *Client) endpoint(shop string) string {
	return fmt.Sprintf("%s://%s/admin/api/%s/graphql.json", c.scheme, shop, c.apiVersion)
}

// query posts one GraphQL document and decodes the data payload into out.
// Any transport failure, non-2xx status, or GraphQL-level error fails the
// call; callers never see partial data.
func (c *Client) query(ctx context.Context, creds Credentials, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(creds.Shop), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", creds.Token)
	req.Header.Set("User-Agent", "ShopAudit/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("graphql request: %s returned %d", creds.Shop, resp.StatusCode)
	}

	var envelope gqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}
