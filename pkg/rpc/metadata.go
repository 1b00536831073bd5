package rpc

// Call-metadata keys used by carriers that don't fit in a unary payload
// field: Register's registration token and the registering server's own
// advertised address, and the capability token for calls whose handler
// needs it before the payload is fully available (streaming first frame).
const (
	MetadataRegistrationToken = "registration_token"
	MetadataGRPCURL           = "grpc-url"
	MetadataCapabilityToken   = "capability_token"
)
