package server

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified engine service name.
const ServiceName = "casperlabs.ipc.ExecutionEngineService"

// Full method names.
const (
	MethodQuery     = "/" + ServiceName + "/Query"
	MethodCommit    = "/" + ServiceName + "/Commit"
	MethodStateRoot = "/" + ServiceName + "/StateRoot"
	MethodMetrics   = "/" + ServiceName + "/Metrics"
)

// ExecutionEngineServer is the server API of the engine service.
type ExecutionEngineServer interface {
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
	Commit(context.Context, *CommitRequest) (*CommitResponse, error)
	StateRoot(context.Context, *StateRootRequest) (*StateRootResponse, error)
	Metrics(context.Context, *MetricsRequest) (*MetricsResponse, error)
}

// RegisterExecutionEngineServer registers srv on s.
func RegisterExecutionEngineServer(s grpc.ServiceRegistrar, srv ExecutionEngineServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExecutionEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: unaryHandler(MethodQuery, ExecutionEngineServer.Query)},
		{MethodName: "Commit", Handler: unaryHandler(MethodCommit, ExecutionEngineServer.Commit)},
		{MethodName: "StateRoot", Handler: unaryHandler(MethodStateRoot, ExecutionEngineServer.StateRoot)},
		{MethodName: "Metrics", Handler: unaryHandler(MethodMetrics, ExecutionEngineServer.Metrics)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "engine.xdr",
}

// unaryHandler adapts a typed service method to grpc's method handler.
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(ExecutionEngineServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExecutionEngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExecutionEngineServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client is the client API of the engine service. Every call is sent with
// the xdr content-subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error) {
	return invoke[QueryResponse](ctx, c.cc, MethodQuery, in, opts)
}

func (c *Client) Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error) {
	return invoke[CommitResponse](ctx, c.cc, MethodCommit, in, opts)
}

func (c *Client) StateRoot(ctx context.Context, in *StateRootRequest, opts ...grpc.CallOption) (*StateRootResponse, error) {
	return invoke[StateRootResponse](ctx, c.cc, MethodStateRoot, in, opts)
}

func (c *Client) Metrics(ctx context.Context, in *MetricsRequest, opts ...grpc.CallOption) (*MetricsResponse, error) {
	return invoke[MetricsResponse](ctx, c.cc, MethodMetrics, in, opts)
}
