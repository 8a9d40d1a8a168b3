package identity

// DidDoc is the JSON projection of a stored document, shaped like a W3C
// DID core document with the registry's bookkeeping fields on top.
type DidDoc struct {
	Context              []string `json:"@context"`
	Id                   string   `json:"id"`
	Controller           string   `json:"controller"`
	VerificationMethod   []string `json:"verificationMethod"`
	Authentication       []string `json:"authentication"`
	AssertionMethod      []string `json:"assertionMethod"`
	CapabilityInvocation []string `json:"capabilityInvocation"`
	CapabilityDelegation []string `json:"capabilityDelegation"`
	KeyAgreement         []string `json:"keyAgreement"`
	Service              []string `json:"service"`
	Created              int64    `json:"created"`
	Updated              int64    `json:"updated"`
	Active               bool     `json:"active"`
}
