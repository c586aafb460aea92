package real

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joeycumines/detsim"
)

// rpcServiceServer is the HandlerType go-inprocgrpc's ServiceDesc
// dispatches to - grounded directly on inprocgrpc/channel_test.go's own
// no-protoc-codegen pattern (a hand-rolled grpc.ServiceDesc whose
// single method decodes a *wrapperspb.BytesValue).
type rpcServiceServer interface {
	Call(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rpcServiceServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/detsim.Rpc/Call"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(rpcServiceServer).Call(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var rpcServiceDesc = grpc.ServiceDesc{
	ServiceName: "detsim.Rpc",
	HandlerType: (*rpcServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Metadata: "detsim.proto",
}

// rpcServer is the one instance registered against Env.channel; it
// routes every inbound Call to whichever hosted process's
// RegisterRpcListener is current for the target address in the
// request's metadata.
type rpcServer struct {
	env *Env
}

const (
	mdToNode      = "detsim-to-node"
	mdToProcess   = "detsim-to-process"
	mdFromNode    = "detsim-from-node"
	mdFromProcess = "detsim-from-process"
)

func (s *rpcServer) Call(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "missing routing metadata")
	}
	to := detsim.NewAddress(firstOf(md, mdToNode), firstOf(md, mdToProcess))
	from := detsim.NewAddress(firstOf(md, mdFromNode), firstOf(md, mdFromProcess))

	onRequest, ok := s.env.rpcListener(to)
	if !ok {
		return nil, status.Error(codes.Unavailable, ErrConnectionRefused.Error())
	}

	req := &rpcRequest{from: from, content: in.GetValue(), resp: make(chan rpcResult, 1)}
	onRequest(req)
	res := <-req.resp
	if res.err != nil {
		return nil, status.Error(codes.Unavailable, res.err.Error())
	}
	return &wrapperspb.BytesValue{Value: res.data}, nil
}

func firstOf(md metadata.MD, key string) string {
	vs := md.Get(key)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

type rpcResult struct {
	data []byte
	err  error
}

// rpcRequest implements detsim.RpcRequest, blocking the server-side
// Call handler (via resp) until Reply or Close resolves it - Invoke is
// a synchronous call from the caller's perspective, so this is the
// natural bridge back to the continuation-style Runtime contract.
type rpcRequest struct {
	from    detsim.Address
	content []byte
	resp    chan rpcResult
	done    bool
}

func (r *rpcRequest) From() detsim.Address { return r.from }

func (r *rpcRequest) Unpack(unmarshal func([]byte) error) error {
	return unmarshal(r.content)
}

func (r *rpcRequest) Reply(resp []byte) {
	if r.done {
		return
	}
	r.done = true
	r.resp <- rpcResult{data: resp}
}

func (r *rpcRequest) Close() {
	if r.done {
		return
	}
	r.done = true
	r.resp <- rpcResult{err: ErrConnectionRefused}
}

func (e *Env) setRpcListener(addr detsim.Address, fn func(detsim.RpcRequest)) {
	e.mu.Lock()
	if hp, ok := e.hosted[addr]; ok {
		hp.rpcOnRequest = fn
	}
	e.mu.Unlock()
}

func (e *Env) rpcListener(addr detsim.Address) (func(detsim.RpcRequest), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hp, ok := e.hosted[addr]
	if !ok || hp.rpcOnRequest == nil {
		return nil, false
	}
	return hp.rpcOnRequest, true
}

type rpcListenerHandle struct {
	env  *Env
	addr detsim.Address
}

func (h *rpcListenerHandle) Close() {
	h.env.setRpcListener(h.addr, nil)
}

// RegisterRpcListener registers this process as the RPC listener at its
// own address, dispatched through the Env-wide inprocgrpc.Channel.
func (r *runtime) RegisterRpcListener(onRequest func(detsim.RpcRequest)) (detsim.RpcListener, error) {
	if _, ok := r.env.hostedProcess(r.self); !ok {
		return nil, ErrNotRegistered
	}
	r.env.setRpcListener(r.self, onRequest)
	return &rpcListenerHandle{env: r.env, addr: r.self}, nil
}

// SendRequest sends an RPC request to to via the shared Channel,
// resolving onReply with either the listener's reply or this package's
// ErrConnectionRefused.
func (r *runtime) SendRequest(to detsim.Address, content []byte, onReply func(resp []byte, err error)) {
	go func() {
		ctx := metadata.AppendToOutgoingContext(context.Background(),
			mdToNode, to.Node, mdToProcess, to.Process,
			mdFromNode, r.self.Node, mdFromProcess, r.self.Process,
		)
		req := &wrapperspb.BytesValue{Value: content}
		resp := new(wrapperspb.BytesValue)
		err := r.env.channel.Invoke(ctx, "/detsim.Rpc/Call", req, resp)
		if err != nil {
			if onReply != nil {
				onReply(nil, ErrConnectionRefused)
			}
			return
		}
		if onReply != nil {
			onReply(resp.GetValue(), nil)
		}
	}()
}
