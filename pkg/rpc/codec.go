package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName overrides grpc-go's built-in "proto" codec so that the
// generated ServiceDesc values (grpc.Invoke/grpc.NewStream under the
// hood) need no per-call CallContentSubtype: any client/server pair
// wired through this package already agrees on the wire format.
const codecName = "proto"

// jsonCodec implements encoding.Codec over the message structs in this
// package. It exists so a real grpc.Server/grpc.ClientConn can carry
// these messages end to end — actual wire framing (what bytes land on
// the connection) is deliberately not this module's concern; JSON is
// simply a working substitute for the protoc-emitted binary encoding.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpc: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
