package credential

import (
	"fmt"
	"strconv"
	"strings"
)

// Lifecycle states. Revoked is terminal.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusRevoked   = "revoked"
)

// BaseType prefixes every issued credential's type list.
const BaseType = "VerifiableCredential"

// IDPrefix forms the derived string id, e.g. "credential:7".
const IDPrefix = "credential:"

type IssueParams struct {
	Subject     string
	Type        string
	ClaimKeys   []string
	ClaimValues []string
	Expiration  int64
	SchemaRef   string
	Proof       string
}

type ZKIssueParams struct {
	Subject    string
	Type       string
	ZKProof    string
	Proof      string
	Expiration int64
	SchemaRef  string
}

type View struct {
	Id                  string   `json:"id"`
	Seq                 uint64   `json:"seq"`
	Types               []string `json:"type"`
	Issuer              string   `json:"issuer"`
	Subject             string   `json:"subject"`
	IssuedAt            int64    `json:"issuedAt"`
	Expiration          int64    `json:"expiration"`
	Status              string   `json:"status"`
	SchemaRef           string   `json:"schema,omitempty"`
	Proof               string   `json:"proof,omitempty"`
	ZKProof             string   `json:"zkProof,omitempty"`
	SelectiveDisclosure bool     `json:"selectiveDisclosure"`
}

type ClaimPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StringID derives the display id for a sequence number.
func StringID(seq uint64) string {
	return IDPrefix + strconv.FormatUint(seq, 10)
}

// ParseID accepts a numeric id or its derived "credential:<n>" form.
func ParseID(s string) (uint64, error) {
	s = strings.TrimPrefix(s, IDPrefix)
	seq, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid credential id: %s", s)
	}
	return seq, nil
}
