package grpcapi

import "encoding/json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec, serializing
// the plain request/response structs in this package as JSON instead of
// wire-format protobuf. Registered under the name "proto" — the name
// grpc-go's client and server negotiate by default — so ordinary
// grpc.Dial/grpc.NewServer callers need no extra configuration to use it.
//
// This package has no .proto file and no protoc-generated types: every
// message here is a plain Go struct. grpc-go's codec is explicitly designed
// to be replaceable (see google.golang.org/grpc/encoding), so this is that
// extension point in use, not a deviation from the transport.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "proto" }
