package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

type IssueArgs struct {
	Subject     string   `json:"subject"`
	Type        string   `json:"type"`
	ClaimKeys   []string `json:"claimKeys,omitempty"`
	ClaimValues []string `json:"claimValues,omitempty"`
	Expiration  int64    `json:"expiration,omitempty"`
	Schema      string   `json:"schema,omitempty"`
	Proof       string   `json:"proof,omitempty"`
}

type IssueZKArgs struct {
	Subject    string `json:"subject"`
	Type       string `json:"type"`
	ZkProof    string `json:"zkProof"`
	Proof      string `json:"proof,omitempty"`
	Expiration int64  `json:"expiration,omitempty"`
	Schema     string `json:"schema,omitempty"`
}

func (c *Client) IssueCredential(ctx context.Context, args IssueArgs) (json.RawMessage, error) {
	var cred json.RawMessage
	err := c.post(ctx, "/v1/credentials/issue", args, c.accessJwt, &cred)
	return cred, err
}

func (c *Client) IssueCredentialWithZKProof(ctx context.Context, args IssueZKArgs) (json.RawMessage, error) {
	var cred json.RawMessage
	err := c.post(ctx, "/v1/credentials/issueWithZkProof", args, c.accessJwt, &cred)
	return cred, err
}

func (c *Client) SuspendCredential(ctx context.Context, id string, reason string) error {
	return c.post(ctx, "/v1/credentials/suspend", map[string]string{
		"id":     id,
		"reason": reason,
	}, c.accessJwt, nil)
}

func (c *Client) RevokeCredential(ctx context.Context, id string, reason string) error {
	return c.post(ctx, "/v1/credentials/revoke", map[string]string{
		"id":     id,
		"reason": reason,
	}, c.accessJwt, nil)
}

func (c *Client) ReactivateCredential(ctx context.Context, id string) error {
	return c.post(ctx, "/v1/credentials/reactivate", map[string]string{
		"id": id,
	}, c.accessJwt, nil)
}

func (c *Client) GetCredential(ctx context.Context, id string) (json.RawMessage, error) {
	var cred json.RawMessage
	err := c.get(ctx, "/v1/credentials/get", url.Values{"id": {id}}, &cred)
	return cred, err
}

func (c *Client) VerifyCredential(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	err := c.get(ctx, "/v1/credentials/verify", url.Values{"id": {id}}, &resp)
	return resp.Valid, err
}

func (c *Client) CredentialClaim(ctx context.Context, id string, key string) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	err := c.get(ctx, "/v1/credentials/claim", url.Values{"id": {id}, "key": {key}}, &resp)
	return resp.Value, err
}

func (c *Client) CredentialClaims(ctx context.Context, id string) (json.RawMessage, error) {
	var claims json.RawMessage
	err := c.get(ctx, "/v1/credentials/claims", url.Values{"id": {id}}, &claims)
	return claims, err
}

func (c *Client) CredentialsBySubject(ctx context.Context, did string, cursor int64, limit int) (json.RawMessage, error) {
	query := url.Values{"did": {did}}
	if cursor >= 0 {
		query.Set("cursor", strconv.FormatInt(cursor, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp json.RawMessage
	err := c.get(ctx, "/v1/credentials/subject", query, &resp)
	return resp, err
}

func (c *Client) CredentialCount(ctx context.Context) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	err := c.get(ctx, "/v1/credentials/count", nil, &resp)
	return resp.Count, err
}
