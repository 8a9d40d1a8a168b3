package client

import (
	"context"
	"encoding/json"
	"net/url"
)

func (c *Client) CreateIdentity(ctx context.Context, did string, contexts []string, verificationMethods []string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := c.post(ctx, "/v1/identity/create", map[string]any{
		"did":                 did,
		"contexts":            contexts,
		"verificationMethods": verificationMethods,
	}, c.accessJwt, &doc)
	return doc, err
}

func (c *Client) UpdateIdentity(ctx context.Context, did string, contexts []string, verificationMethods []string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := c.post(ctx, "/v1/identity/update", map[string]any{
		"did":                 did,
		"contexts":            contexts,
		"verificationMethods": verificationMethods,
	}, c.accessJwt, &doc)
	return doc, err
}

func (c *Client) DeactivateIdentity(ctx context.Context, did string) error {
	return c.post(ctx, "/v1/identity/deactivate", map[string]string{
		"did": did,
	}, c.accessJwt, nil)
}

func (c *Client) AddVerificationMethod(ctx context.Context, did string, verificationMethod string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := c.post(ctx, "/v1/identity/addVerificationMethod", map[string]string{
		"did":                did,
		"verificationMethod": verificationMethod,
	}, c.accessJwt, &doc)
	return doc, err
}

func (c *Client) AddServiceEndpoint(ctx context.Context, did string, serviceEndpoint string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := c.post(ctx, "/v1/identity/addServiceEndpoint", map[string]string{
		"did":             did,
		"serviceEndpoint": serviceEndpoint,
	}, c.accessJwt, &doc)
	return doc, err
}

func (c *Client) Resolve(ctx context.Context, did string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := c.get(ctx, "/v1/identity/resolve", url.Values{"did": {did}}, &doc)
	return doc, err
}

func (c *Client) ResolveAddress(ctx context.Context, address string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := c.get(ctx, "/v1/identity/resolve", url.Values{"address": {address}}, &doc)
	return doc, err
}

func (c *Client) IdentityActive(ctx context.Context, address string) (bool, error) {
	var resp struct {
		Active bool `json:"active"`
	}
	err := c.get(ctx, "/v1/identity/active", url.Values{"address": {address}}, &resp)
	return resp.Active, err
}

func (c *Client) IdentityCount(ctx context.Context) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	err := c.get(ctx, "/v1/identity/count", nil, &resp)
	return resp.Count, err
}
