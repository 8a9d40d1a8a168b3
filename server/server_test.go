package server

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/ethereum/go-ethereum/accounts"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	ownerKey *ecdsa.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()

	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key, err := jwk.FromRaw(p256)
	require.NoError(t, err)
	jwkbytes, err := json.Marshal(key)
	require.NoError(t, err)
	jwkPath := filepath.Join(dir, "jwk.json")
	require.NoError(t, os.WriteFile(jwkPath, jwkbytes, 0600))

	serviceKey, err := indigocrypto.GeneratePrivateKeyK256()
	require.NoError(t, err)
	serviceKeyPath := filepath.Join(dir, "service.key")
	require.NoError(t, os.WriteFile(serviceKeyPath, serviceKey.Bytes(), 0600))

	ownerKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	s, err := New(&Args{
		Addr:           ":0",
		DbName:         filepath.Join(dir, "test.db"),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:        "test",
		Did:            "did:web:registry.example.com",
		Hostname:       "registry.example.com",
		Owner:          gethcrypto.PubkeyToAddress(ownerKey.PublicKey).Hex(),
		JwkPath:        jwkPath,
		ServiceKeyPath: serviceKeyPath,
	})
	require.NoError(t, err)

	s.addRoutes()

	return &testServer{Server: s, ownerKey: ownerKey}
}

func (ts *testServer) request(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (ts *testServer) login(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()

	address := gethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	rec := ts.request(t, "POST", "/v1/auth/challenge", map[string]string{"address": address}, "")
	require.Equal(t, 200, rec.Code, rec.Body.String())
	challenge := decode[AuthChallengeResponse](t, rec)

	sig, err := gethcrypto.Sign(accounts.TextHash([]byte(challenge.Nonce)), key)
	require.NoError(t, err)

	rec = ts.request(t, "POST", "/v1/auth/session", map[string]string{
		"address":   address,
		"signature": hexutil.Encode(sig),
	}, "")
	require.Equal(t, 200, rec.Code, rec.Body.String())
	sess := decode[AuthCreateSessionResponse](t, rec)
	require.NotEmpty(t, sess.AccessJwt)

	return sess.AccessJwt
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, "GET", "/v1/status", nil, "")
	require.Equal(t, 200, rec.Code)

	status := decode[StatusResponse](t, rec)
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, "did:web:registry.example.com", status.Did)
	assert.False(t, status.Paused)
}

func TestWellKnown(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, "GET", "/.well-known/did.json", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "did:web:registry.example.com")
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	userKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	token := ts.login(t, userKey)

	rec := ts.request(t, "GET", "/v1/auth/session", nil, token)
	require.Equal(t, 200, rec.Code)
	sess := decode[AuthGetSessionResponse](t, rec)
	assert.NotEmpty(t, sess.Address)
	assert.False(t, sess.HasActiveDid)

	rec = ts.request(t, "GET", "/v1/auth/session", nil, "")
	assert.Equal(t, 401, rec.Code)

	rec = ts.request(t, "GET", "/v1/auth/session", nil, "garbage")
	assert.Equal(t, 400, rec.Code)
}

func TestAuthRejectsWrongSigner(t *testing.T) {
	ts := newTestServer(t)

	userKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	address := gethcrypto.PubkeyToAddress(userKey.PublicKey).Hex()

	rec := ts.request(t, "POST", "/v1/auth/challenge", map[string]string{"address": address}, "")
	require.Equal(t, 200, rec.Code)
	challenge := decode[AuthChallengeResponse](t, rec)

	sig, err := gethcrypto.Sign(accounts.TextHash([]byte(challenge.Nonce)), otherKey)
	require.NoError(t, err)

	rec = ts.request(t, "POST", "/v1/auth/session", map[string]string{
		"address":   address,
		"signature": hexutil.Encode(sig),
	}, "")
	assert.Equal(t, 403, rec.Code)
}

func TestAuthAcceptsWalletRecoveryIds(t *testing.T) {
	ts := newTestServer(t)

	userKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	address := gethcrypto.PubkeyToAddress(userKey.PublicKey).Hex()

	rec := ts.request(t, "POST", "/v1/auth/challenge", map[string]string{"address": address}, "")
	require.Equal(t, 200, rec.Code)
	challenge := decode[AuthChallengeResponse](t, rec)

	sig, err := gethcrypto.Sign(accounts.TextHash([]byte(challenge.Nonce)), userKey)
	require.NoError(t, err)
	sig[64] += 27

	rec = ts.request(t, "POST", "/v1/auth/session", map[string]string{
		"address":   address,
		"signature": hexutil.Encode(sig),
	}, "")
	assert.Equal(t, 200, rec.Code, rec.Body.String())
}

func TestIdentityOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	userKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	token := ts.login(t, userKey)

	rec := ts.request(t, "POST", "/v1/identity/create", map[string]any{
		"did":                 "did:example:alice",
		"verificationMethods": []string{"did:example:alice#key-1"},
	}, token)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	rec = ts.request(t, "POST", "/v1/identity/create", map[string]any{"did": "did:example:alice"}, "")
	assert.Equal(t, 401, rec.Code, "mutations require a session")

	rec = ts.request(t, "POST", "/v1/identity/create", map[string]any{"did": "not a did"}, token)
	assert.Equal(t, 400, rec.Code)

	rec = ts.request(t, "GET", "/v1/identity/resolve?did=did:example:alice", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "did:example:alice")

	rec = ts.request(t, "GET", "/v1/identity/resolve?did=did:example:ghost", nil, "")
	assert.Equal(t, 404, rec.Code)

	rec = ts.request(t, "GET", "/v1/identity/resolve", nil, "")
	assert.Equal(t, 400, rec.Code)

	otherKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	otherToken := ts.login(t, otherKey)

	rec = ts.request(t, "POST", "/v1/identity/deactivate", map[string]any{"did": "did:example:alice"}, otherToken)
	assert.Equal(t, 403, rec.Code, "only the controller or owner may deactivate")

	rec = ts.request(t, "POST", "/v1/identity/deactivate", map[string]any{"did": "did:example:alice"}, token)
	require.Equal(t, 200, rec.Code)

	rec = ts.request(t, "POST", "/v1/identity/update", map[string]any{"did": "did:example:alice"}, token)
	assert.Equal(t, 409, rec.Code, "deactivation is final")
}

func TestCredentialsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	issuerKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	issuerAddress := gethcrypto.PubkeyToAddress(issuerKey.PublicKey).Hex()

	ownerToken := ts.login(t, ts.ownerKey)
	issuerToken := ts.login(t, issuerKey)

	rec := ts.request(t, "POST", "/v1/credentials/issue", map[string]any{
		"subject": "did:example:subject",
		"type":    "IdentityCredential",
	}, issuerToken)
	assert.Equal(t, 403, rec.Code, "unauthorized issuers are rejected")

	rec = ts.request(t, "POST", "/v1/issuers/authorize", map[string]any{
		"address": issuerAddress,
		"did":     "did:example:issuer",
	}, issuerToken)
	assert.Equal(t, 403, rec.Code, "only the owner manages the directory")

	rec = ts.request(t, "POST", "/v1/issuers/authorize", map[string]any{
		"address": issuerAddress,
		"did":     "did:example:issuer",
	}, ownerToken)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	rec = ts.request(t, "POST", "/v1/credentials/issue", map[string]any{
		"subject":     "did:example:subject",
		"type":        "IdentityCredential",
		"claimKeys":   []string{"name"},
		"claimValues": []string{"alice"},
	}, issuerToken)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var cred struct {
		Id     string `json:"id"`
		Issuer string `json:"issuer"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cred))
	assert.Equal(t, "credential:0", cred.Id)
	assert.Equal(t, "did:example:issuer", cred.Issuer)
	assert.Equal(t, "active", cred.Status)

	rec = ts.request(t, "GET", "/v1/credentials/verify?id=credential:0", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	rec = ts.request(t, "GET", "/v1/credentials/claim?id=credential:0&key=name", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")

	rec = ts.request(t, "POST", "/v1/credentials/revoke", map[string]any{
		"id":     "credential:0",
		"reason": "test",
	}, issuerToken)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	rec = ts.request(t, "GET", "/v1/credentials/verify?id=credential:0", nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)

	rec = ts.request(t, "POST", "/v1/credentials/reactivate", map[string]any{"id": "credential:0"}, issuerToken)
	assert.Equal(t, 409, rec.Code, "revocation is final")

	rec = ts.request(t, "GET", "/v1/credentials/get?id=credential:99", nil, "")
	assert.Equal(t, 404, rec.Code)

	rec = ts.request(t, "GET", "/v1/credentials/get?id=junk", nil, "")
	assert.Equal(t, 400, rec.Code)
}

func TestAdminPauseOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	userKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	userToken := ts.login(t, userKey)
	ownerToken := ts.login(t, ts.ownerKey)

	rec := ts.request(t, "POST", "/v1/admin/pause", nil, userToken)
	assert.Equal(t, 403, rec.Code)

	rec = ts.request(t, "POST", "/v1/admin/pause", nil, ownerToken)
	require.Equal(t, 200, rec.Code)

	rec = ts.request(t, "GET", "/v1/status", nil, "")
	require.Equal(t, 200, rec.Code)
	status := decode[StatusResponse](t, rec)
	assert.True(t, status.Paused)

	rec = ts.request(t, "POST", "/v1/identity/create", map[string]any{"did": "did:example:alice"}, userToken)
	assert.Equal(t, 503, rec.Code, "writes are rejected while paused")

	rec = ts.request(t, "GET", "/v1/identity/count", nil, "")
	assert.Equal(t, 200, rec.Code, "reads keep working while paused")

	rec = ts.request(t, "POST", "/v1/admin/pause", nil, ownerToken)
	assert.Equal(t, 409, rec.Code)

	rec = ts.request(t, "POST", "/v1/admin/unpause", nil, ownerToken)
	require.Equal(t, 200, rec.Code)

	rec = ts.request(t, "POST", "/v1/identity/create", map[string]any{"did": "did:example:alice"}, userToken)
	assert.Equal(t, 200, rec.Code, rec.Body.String())
}

func TestEventsListOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	userKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	token := ts.login(t, userKey)

	rec := ts.request(t, "POST", "/v1/identity/create", map[string]any{"did": "did:example:alice"}, token)
	require.Equal(t, 200, rec.Code)

	rec = ts.request(t, "GET", "/v1/events", nil, "")
	require.Equal(t, 200, rec.Code)

	var page struct {
		Events []eventView `json:"events"`
		Cursor uint64      `json:"cursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.NotEmpty(t, page.Events)
	assert.Equal(t, "identity.created", page.Events[0].Kind)
	assert.Equal(t, page.Events[len(page.Events)-1].Seq, page.Cursor)

	rec = ts.request(t, "GET", "/v1/events?kind=identity.created", nil, "")
	require.Equal(t, 200, rec.Code)

	rec = ts.request(t, "GET", "/v1/events?cursor=junk", nil, "")
	assert.Equal(t, 400, rec.Code)
}

func TestSchemasOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	ownerToken := ts.login(t, ts.ownerKey)

	rec := ts.request(t, "POST", "/v1/schemas/register", map[string]any{
		"document": map[string]any{
			"type":     "object",
			"required": []string{"name"},
		},
	}, ownerToken)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var created struct {
		Ref string `json:"ref"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Ref)

	rec = ts.request(t, "GET", "/v1/schemas/get?ref="+created.Ref, nil, "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Ref)

	rec = ts.request(t, "GET", "/v1/schemas/get?ref=schema:zzzz", nil, "")
	assert.Equal(t, 400, rec.Code)
}
