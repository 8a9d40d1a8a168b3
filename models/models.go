package models

import (
	"time"
)

type Account struct {
	Address   string `gorm:"primaryKey"`
	PublicKey []byte
	FirstSeen time.Time
}

type Token struct {
	Token        string `gorm:"primaryKey"`
	Address      string `gorm:"index"`
	RefreshToken string `gorm:"index"`
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"index:,sort:asc"`
}

type RefreshToken struct {
	Token     string `gorm:"primaryKey"`
	Address   string `gorm:"index"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index:,sort:asc"`
}

type AuthChallenge struct {
	Nonce     string `gorm:"primaryKey"`
	Address   string `gorm:"index"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index:,sort:asc"`
}

type Document struct {
	Did                   string   `gorm:"primaryKey"`
	Controller            string   `gorm:"uniqueIndex"`
	Contexts              []string `gorm:"serializer:json"`
	VerificationMethods   []string `gorm:"serializer:json"`
	Authentications       []string `gorm:"serializer:json"`
	AssertionMethods      []string `gorm:"serializer:json"`
	CapabilityInvocations []string `gorm:"serializer:json"`
	CapabilityDelegations []string `gorm:"serializer:json"`
	KeyAgreements         []string `gorm:"serializer:json"`
	Services              []string `gorm:"serializer:json"`
	Created               time.Time
	Updated               time.Time
	Active                bool
}

type Credential struct {
	Seq                 uint64   `gorm:"primaryKey;autoIncrement:false"`
	StringID            string   `gorm:"uniqueIndex"`
	Types               []string `gorm:"serializer:json"`
	Issuer              string   `gorm:"index"`
	IssuerAddress       string   `gorm:"index"`
	Subject             string   `gorm:"index"`
	IssuedAt            time.Time
	ExpiresAt           int64
	Status              string `gorm:"index"`
	SchemaRef           string
	Proof               string
	ZKProof             string
	SelectiveDisclosure bool
}

// Expired reports whether the credential's expiration has passed. A zero
// ExpiresAt means the credential never expires.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != 0 && now.Unix() > c.ExpiresAt
}

type Claim struct {
	CredentialSeq uint64 `gorm:"primaryKey;index:idx_claims_by_position"`
	Key           string `gorm:"primaryKey"`
	Position      int    `gorm:"index:idx_claims_by_position,sort:asc"`
	Value         string
}

type Issuer struct {
	Address    string `gorm:"primaryKey"`
	Did        string
	Authorized bool
	UpdatedAt  time.Time
}

type CredentialType struct {
	Name      string `gorm:"primaryKey"`
	Supported bool
	UpdatedAt time.Time
}

type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value uint64
}

type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

type Event struct {
	Seq       uint64 `gorm:"primaryKey"`
	Kind      string `gorm:"index"`
	Payload   []byte
	CreatedAt time.Time `gorm:"index"`
}

type Schema struct {
	Hash      string `gorm:"primaryKey"`
	Document  []byte
	CreatedBy string
	CreatedAt time.Time
}
