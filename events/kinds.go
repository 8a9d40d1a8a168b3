package events

// Event kinds recorded by the registry. One event per successful
// mutating operation; failed operations record nothing.
const (
	KindIdentityCreated           = "identity.created"
	KindIdentityUpdated           = "identity.updated"
	KindIdentityDeactivated       = "identity.deactivated"
	KindVerificationMethodAdded   = "identity.verification_method_added"
	KindServiceEndpointAdded      = "identity.service_added"
	KindCredentialIssued          = "credential.issued"
	KindCredentialSuspended       = "credential.suspended"
	KindCredentialRevoked         = "credential.revoked"
	KindCredentialReactivated     = "credential.reactivated"
	KindIssuerAuthorized          = "issuer.authorized"
	KindIssuerDeauthorized        = "issuer.deauthorized"
	KindCredentialTypeChanged     = "credential_type.changed"
	KindRegistryPaused            = "registry.paused"
	KindRegistryUnpaused          = "registry.unpaused"
	KindSchemaRegistered          = "schema.registered"
)
