package client

import (
	"context"
	"encoding/json"
	"net/url"
)

type Status struct {
	Version          string `json:"version"`
	Did              string `json:"did"`
	Paused           bool   `json:"paused"`
	TotalDids        int64  `json:"totalDids"`
	TotalCredentials int64  `json:"totalCredentials"`
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, "/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Pause(ctx context.Context) error {
	return c.post(ctx, "/v1/admin/pause", nil, c.accessJwt, nil)
}

func (c *Client) Unpause(ctx context.Context) error {
	return c.post(ctx, "/v1/admin/unpause", nil, c.accessJwt, nil)
}

func (c *Client) AuthorizeIssuer(ctx context.Context, address string, did string) error {
	return c.post(ctx, "/v1/issuers/authorize", map[string]string{
		"address": address,
		"did":     did,
	}, c.accessJwt, nil)
}

func (c *Client) DeauthorizeIssuer(ctx context.Context, address string) error {
	return c.post(ctx, "/v1/issuers/deauthorize", map[string]string{
		"address": address,
	}, c.accessJwt, nil)
}

func (c *Client) SetCredentialType(ctx context.Context, name string, supported bool) error {
	return c.post(ctx, "/v1/issuers/setType", map[string]any{
		"name":      name,
		"supported": supported,
	}, c.accessJwt, nil)
}

func (c *Client) GetIssuer(ctx context.Context, address string) (json.RawMessage, error) {
	var issuer json.RawMessage
	err := c.get(ctx, "/v1/issuers/get", url.Values{"address": {address}}, &issuer)
	return issuer, err
}

func (c *Client) CredentialTypes(ctx context.Context) ([]string, error) {
	var resp struct {
		Types []string `json:"types"`
	}
	err := c.get(ctx, "/v1/issuers/types", nil, &resp)
	return resp.Types, err
}

func (c *Client) RegisterSchema(ctx context.Context, document json.RawMessage) (string, error) {
	var resp struct {
		Ref string `json:"ref"`
	}
	err := c.post(ctx, "/v1/schemas/register", map[string]any{
		"document": document,
	}, c.accessJwt, &resp)
	return resp.Ref, err
}

func (c *Client) GetSchema(ctx context.Context, ref string) (json.RawMessage, error) {
	var resp struct {
		Document json.RawMessage `json:"document"`
	}
	err := c.get(ctx, "/v1/schemas/get", url.Values{"ref": {ref}}, &resp)
	return resp.Document, err
}
