// gRPC service description for codetree.v1.CodeTree
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "codetree.v1.CodeTree"

// Method names
const (
	MethodSearch              = "Search"
	MethodDescendants         = "Descendants"
	MethodAncestors           = "Ancestors"
	MethodUltimateAncestors   = "UltimateAncestors"
	MethodWalk                = "Walk"
	MethodResolveStatuses     = "ResolveStatuses"
	MethodDefinitionFromCodes = "DefinitionFromCodes"
	MethodDefinitionToCodes   = "DefinitionToCodes"
	MethodRenderVersion       = "RenderVersion"
)

// CodeTreeServer is the server API. Requests and responses are JSON-shaped
// structpb.Struct messages.
type CodeTreeServer interface {
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Descendants(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ancestors(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UltimateAncestors(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Walk(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveStatuses(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DefinitionFromCodes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DefinitionToCodes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenderVersion(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(CodeTreeServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes the CodeTree service to grpc.Server
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodeTreeServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodSearch, CodeTreeServer.Search),
		unary(MethodDescendants, CodeTreeServer.Descendants),
		unary(MethodAncestors, CodeTreeServer.Ancestors),
		unary(MethodUltimateAncestors, CodeTreeServer.UltimateAncestors),
		unary(MethodWalk, CodeTreeServer.Walk),
		unary(MethodResolveStatuses, CodeTreeServer.ResolveStatuses),
		unary(MethodDefinitionFromCodes, CodeTreeServer.DefinitionFromCodes),
		unary(MethodDefinitionToCodes, CodeTreeServer.DefinitionToCodes),
		unary(MethodRenderVersion, CodeTreeServer.RenderVersion),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "codetree/v1/codetree.proto",
}

// RegisterCodeTreeServer registers srv on s
func RegisterCodeTreeServer(s grpc.ServiceRegistrar, srv CodeTreeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the wire name of a method, e.g. /codetree.v1.CodeTree/Walk
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary(name string, call unaryMethod) grpc.MethodDesc {
	full := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CodeTreeServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CodeTreeServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// decode copies a request message into a Go value through its JSON form.
// Unknown fields are rejected.
func decode(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

// encode converts a Go value to a response message through its JSON form
func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}
