package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bluesky-social/indigo/util"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Client talks to a registry over its HTTP API. It signs auth
// challenges with a local secp256k1 key and keeps the session tokens
// it is handed.
type Client struct {
	h *http.Client

	service    string
	key        *ecdsa.PrivateKey
	address    common.Address
	accessJwt  string
	refreshJwt string
}

type Args struct {
	Service string
	Key     []byte
}

func New(args *Args) (*Client, error) {
	if args.Service == "" {
		args.Service = "http://localhost:8080"
	}

	key, err := crypto.ToECDSA(args.Key)
	if err != nil {
		return nil, fmt.Errorf("parsing client key: %w", err)
	}

	return &Client{
		h:       util.RobustHTTPClient(),
		service: args.Service,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (c *Client) Address() common.Address {
	return c.address
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.h.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != 200 {
		var apierr apiError
		if err := json.Unmarshal(body, &apierr); err == nil && apierr.Error != "" {
			if apierr.Message != "" {
				return fmt.Errorf("%s: %s", apierr.Error, apierr.Message)
			}
			return fmt.Errorf("%s", apierr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		return json.Unmarshal(body, out)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, bearer string, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.service+path, bytes.NewBuffer(b))
	if err != nil {
		return err
	}

	req.Header.Add("content-type", "application/json")
	if bearer != "" {
		req.Header.Add("authorization", "Bearer "+bearer)
	}

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.service + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

type sessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Address    string `json:"address"`
	Did        string `json:"did"`
}

// Login requests a challenge for the client address, signs the nonce
// and trades the signature for a token pair.
func (c *Client) Login(ctx context.Context) error {
	var challenge struct {
		Nonce string `json:"nonce"`
	}
	err := c.post(ctx, "/v1/auth/challenge", map[string]string{
		"address": c.address.Hex(),
	}, "", &challenge)
	if err != nil {
		return fmt.Errorf("requesting challenge: %w", err)
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Nonce)), c.key)
	if err != nil {
		return fmt.Errorf("signing challenge: %w", err)
	}

	var sess sessionResponse
	err = c.post(ctx, "/v1/auth/session", map[string]string{
		"address":   c.address.Hex(),
		"signature": hexutil.Encode(sig),
	}, "", &sess)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	c.accessJwt = sess.AccessJwt
	c.refreshJwt = sess.RefreshJwt

	return nil
}

func (c *Client) RefreshSession(ctx context.Context) error {
	var sess sessionResponse
	if err := c.post(ctx, "/v1/auth/refresh", nil, c.refreshJwt, &sess); err != nil {
		return err
	}

	c.accessJwt = sess.AccessJwt
	c.refreshJwt = sess.RefreshJwt

	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/v1/auth/logout", nil, c.accessJwt, nil); err != nil {
		return err
	}

	c.accessJwt = ""
	c.refreshJwt = ""

	return nil
}
