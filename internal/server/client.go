package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/codetree/pkg/definition"
	"github.com/nainya/codetree/pkg/hierarchy"
)

// Client is a typed wrapper over a connection to a CodeTree server
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return err
	}
	return decode(out, resp)
}

// Search searches by codes
func (c *Client) Search(ctx context.Context, codes []hierarchy.Code, opts ...grpc.CallOption) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.call(ctx, MethodSearch, SearchRequest{Codes: codes}, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchTerm searches by term
func (c *Client) SearchTerm(ctx context.Context, term string, opts ...grpc.CallOption) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.call(ctx, MethodSearch, SearchRequest{Term: term}, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Descendants returns every code below code
func (c *Client) Descendants(ctx context.Context, code hierarchy.Code, opts ...grpc.CallOption) ([]hierarchy.Code, error) {
	var resp CodesMessage
	if err := c.call(ctx, MethodDescendants, CodeRequest{Code: code}, &resp, opts...); err != nil {
		return nil, err
	}
	return resp.Codes, nil
}

// Ancestors returns every code above code
func (c *Client) Ancestors(ctx context.Context, code hierarchy.Code, opts ...grpc.CallOption) ([]hierarchy.Code, error) {
	var resp CodesMessage
	if err := c.call(ctx, MethodAncestors, CodeRequest{Code: code}, &resp, opts...); err != nil {
		return nil, err
	}
	return resp.Codes, nil
}

// UltimateAncestors filters codes down to those with no ancestor among them
func (c *Client) UltimateAncestors(ctx context.Context, codes []hierarchy.Code, opts ...grpc.CallOption) ([]hierarchy.Code, error) {
	var resp CodesMessage
	if err := c.call(ctx, MethodUltimateAncestors, CodesMessage{Codes: codes}, &resp, opts...); err != nil {
		return nil, err
	}
	return resp.Codes, nil
}

// Walk returns the tree below code
func (c *Client) Walk(ctx context.Context, code hierarchy.Code, sort string, opts ...grpc.CallOption) ([]WalkRow, error) {
	var resp WalkResponse
	if err := c.call(ctx, MethodWalk, WalkRequest{Code: code, Sort: sort}, &resp, opts...); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// ResolveStatuses applies updates to stored statuses
func (c *Client) ResolveStatuses(ctx context.Context, req ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	var resp ResolveResponse
	if err := c.call(ctx, MethodResolveStatuses, req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DefinitionFromCodes compresses codes into a definition
func (c *Client) DefinitionFromCodes(ctx context.Context, codes []hierarchy.Code, opts ...grpc.CallOption) (definition.Definition, error) {
	var resp DefinitionMessage
	if err := c.call(ctx, MethodDefinitionFromCodes, CodesMessage{Codes: codes}, &resp, opts...); err != nil {
		return definition.Definition{}, err
	}
	return resp.Definition, nil
}

// DefinitionToCodes expands a definition
func (c *Client) DefinitionToCodes(ctx context.Context, def definition.Definition, opts ...grpc.CallOption) ([]hierarchy.Code, error) {
	var resp CodesMessage
	if err := c.call(ctx, MethodDefinitionToCodes, DefinitionMessage{Definition: def}, &resp, opts...); err != nil {
		return nil, err
	}
	return resp.Codes, nil
}

// RenderVersion returns the display form of a version's codes
func (c *Client) RenderVersion(ctx context.Context, codes []hierarchy.Code, opts ...grpc.CallOption) (*VersionResponse, error) {
	var resp VersionResponse
	if err := c.call(ctx, MethodRenderVersion, CodesMessage{Codes: codes}, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}
