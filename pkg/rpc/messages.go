// Package rpc defines the wire messages and gRPC service descriptors for
// the Registry, Context/Tool, and Event Bus services. Wire framing itself
// is out of scope: these are plain Go structs carried over google.golang.org/grpc
// via a hand-registered JSON codec (see codec.go), the same shape
// protoc-gen-go-grpc would otherwise generate from a .proto file.
package rpc

// RegisterRequest registers a server under the Discovery Registry.
// registration_token and the endpoint's grpc-url travel in call metadata,
// not in this payload (see metadata.go).
type RegisterRequest struct {
	ServerName   string   `json:"server_name"`
	Capabilities []string `json:"capabilities"`
}

// RegisterResponse reports the outcome of a Register call.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LookupRequest asks the Registry for endpoints matching any of
// CapabilityFilter.
type LookupRequest struct {
	RequesterToken   string   `json:"requester_token"`
	CapabilityFilter []string `json:"capability_filter"`
}

// Endpoint describes one registered server.
type Endpoint struct {
	ServerName   string   `json:"server_name"`
	GRPCURL      string   `json:"grpc_url"`
	Capabilities []string `json:"capabilities"`
}

// LookupResponse is the Registry's answer to a Lookup call.
type LookupResponse struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// RequestContextRequest asks the Context/Tool server for a stored value.
type RequestContextRequest struct {
	ContextKey      string            `json:"context_key"`
	Parameters      map[string]string `json:"parameters"`
	CapabilityToken string            `json:"capability_token"`
}

// RequestContextResponse carries a context entry's serialized value and
// metadata. Absent entries return a zero-value response, not an error.
type RequestContextResponse struct {
	SerializedValue []byte            `json:"serialized_value"`
	Metadata        map[string]string `json:"metadata"`
}

// TelemetryFrame is one frame of a SubscribeTelemetry stream.
type TelemetryFrame struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Payload     []byte `json:"payload"`
}

// SubscribeTelemetryRequest opens a telemetry bridge for stream_id.
type SubscribeTelemetryRequest struct {
	StreamID        string `json:"stream_id"`
	CapabilityToken string `json:"capability_token"`
}

// InvokeToolRequest invokes a named tool, optionally under a delegation
// proof narrowing the caller's own capabilities.
type InvokeToolRequest struct {
	ToolName             string            `json:"tool_name"`
	Arguments            map[string]string `json:"arguments"`
	CapabilityToken      string            `json:"capability_token"`
	AgentDelegationProof string            `json:"agent_delegation_proof,omitempty"`
}

// InvokeToolResponse reports a tool invocation's outcome. Unrecognized
// tool names are a warning, not an error: Success is still true, Outputs
// is empty, and Warnings names the unknown tool.
type InvokeToolResponse struct {
	Success  bool              `json:"success"`
	Outputs  map[string][]byte `json:"outputs"`
	Warnings []string          `json:"warnings"`
}

// MultiModalFrame is one frame of the bidirectional MultiModalExchange
// stream. The first frame sent by the client carries CapabilityToken via
// call metadata, not this struct.
type MultiModalFrame struct {
	Kind    string `json:"kind"`
	Payload []byte `json:"payload"`
}

// PublishRequest publishes one message to a topic on the Event Bus.
type PublishRequest struct {
	Topic          string `json:"topic"`
	Payload        []byte `json:"payload"`
	PublisherToken string `json:"publisher_token"`
}

// PublishResponse reports the outcome of a Publish call.
type PublishResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SubscribeRequest opens an Event Bus subscription. TopicFilter ending in
// "*" selects pattern subscription; otherwise exact-channel subscription.
type SubscribeRequest struct {
	TopicFilter     string `json:"topic_filter"`
	SubscriberToken string `json:"subscriber_token"`
}

// EventEnvelope is one delivered Event Bus message.
type EventEnvelope struct {
	Topic      string `json:"topic"`
	Payload    []byte `json:"payload"`
	SequenceID uint64 `json:"sequence_id"`
}
