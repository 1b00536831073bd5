package admission

import (
	"sort"
	"strings"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/marmos91/capfabric/pkg/rpc"
)

// carrier names where an operation's token travels.
type carrier int

const (
	carrierPayload carrier = iota
	carrierMetadata
)

// descriptor is this package's rendering of spec.md §4.6's per-method
// table: required capability (possibly computed from the request),
// cacheability, and where the token is carried.
type descriptor struct {
	carrier        carrier
	metadataKey    string // used when carrier == carrierMetadata
	extractPayload func(req any) string
	capability     func(req any) (exact, wildcardFallback string)
	cacheable      bool
	cacheTTL       time.Duration
	cacheKey       func(req any) string
	cacheNew       func() any // zero-value response pointer for cache decode
}

func firstSegment(topic string) string {
	if i := strings.IndexByte(topic, ':'); i >= 0 {
		return topic[:i]
	}
	return topic
}

func sortedParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, ",")
}

// descriptors maps a full gRPC method name to its admission descriptor.
var descriptors = map[string]*descriptor{
	"/capfabric.Registry/Register": {
		carrier:     carrierMetadata,
		metadataKey: rpc.MetadataRegistrationToken,
		capability:  func(req any) (string, string) { return "registry:register", "" },
	},
	"/capfabric.Registry/Lookup": {
		carrier: carrierPayload,
		extractPayload: func(req any) string {
			r, _ := req.(*rpc.LookupRequest)
			if r == nil {
				return ""
			}
			return r.RequesterToken
		},
		capability: func(req any) (string, string) { return "registry:lookup", "" },
	},
	"/capfabric.ContextTool/RequestContext": {
		carrier: carrierPayload,
		extractPayload: func(req any) string {
			r, _ := req.(*rpc.RequestContextRequest)
			if r == nil {
				return ""
			}
			return r.CapabilityToken
		},
		capability: func(req any) (string, string) { return "db:inventory:read", "" },
		cacheable:  true,
		cacheTTL:   60 * time.Second,
		cacheKey: func(req any) string {
			r, _ := req.(*rpc.RequestContextRequest)
			if r == nil {
				return ""
			}
			return "context::" + r.ContextKey + "::" + sortedParams(r.Parameters)
		},
		cacheNew: func() any { return new(rpc.RequestContextResponse) },
	},
	"/capfabric.ContextTool/SubscribeTelemetry": {
		carrier: carrierPayload,
		extractPayload: func(req any) string {
			r, _ := req.(*rpc.SubscribeTelemetryRequest)
			if r == nil {
				return ""
			}
			return r.CapabilityToken
		},
		capability: func(req any) (string, string) { return "telemetry:read", "" },
	},
	"/capfabric.ContextTool/InvokeTool": {
		carrier: carrierPayload,
		extractPayload: func(req any) string {
			r, _ := req.(*rpc.InvokeToolRequest)
			if r == nil {
				return ""
			}
			return r.CapabilityToken
		},
		capability: func(req any) (string, string) {
			r, _ := req.(*rpc.InvokeToolRequest)
			if r == nil {
				return "tool:", ""
			}
			return "tool:" + r.ToolName, ""
		},
	},
	"/capfabric.ContextTool/MultiModalExchange": {
		carrier:     carrierMetadata,
		metadataKey: rpc.MetadataCapabilityToken,
		capability:  func(req any) (string, string) { return "tool:multimodal_exchange", "" },
	},
	"/capfabric.EventBus/Publish": {
		carrier: carrierPayload,
		extractPayload: func(req any) string {
			r, _ := req.(*rpc.PublishRequest)
			if r == nil {
				return ""
			}
			return r.PublisherToken
		},
		capability: func(req any) (string, string) {
			r, _ := req.(*rpc.PublishRequest)
			if r == nil {
				return "event:publish:", ""
			}
			return "event:publish:" + r.Topic, "event:publish:" + firstSegment(r.Topic) + "*"
		},
	},
	"/capfabric.EventBus/Subscribe": {
		carrier: carrierPayload,
		extractPayload: func(req any) string {
			r, _ := req.(*rpc.SubscribeRequest)
			if r == nil {
				return ""
			}
			return r.SubscriberToken
		},
		capability: func(req any) (string, string) {
			r, _ := req.(*rpc.SubscribeRequest)
			if r == nil {
				return "event:subscribe:", ""
			}
			return "event:subscribe:" + r.TopicFilter, "event:subscribe:" + firstSegment(r.TopicFilter) + "*"
		},
	},
}

func lookupDescriptor(fullMethod string) *descriptor {
	return descriptors[fullMethod]
}

func extractMetadataToken(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
