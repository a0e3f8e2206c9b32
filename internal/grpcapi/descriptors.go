package grpcapi

import (
	"context"

	"google.golang.org/grpc"
)

// These ServiceDesc/MethodDesc values stand in for the protoc-generated
// descriptors a real .proto-defined service would have. grpc-go resolves a
// unary RPC purely from this table plus the negotiated codec (jsonCodec,
// registered in codec.go) — nothing here depends on wire-format protobuf.

func userAPIGetUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetUserRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetUser(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mextdomen.UserApi/GetUser"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).GetUser(ctx, req.(*GetUserRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func userAPIListUsersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListUsersRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ListUsers(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mextdomen.UserApi/ListUsers"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).ListUsers(ctx, req.(*ListUsersRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func userAPICreateUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(CreateUserRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).CreateUser(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mextdomen.UserApi/CreateUser"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).CreateUser(ctx, req.(*CreateUserRequest))
	}
	return interceptor(ctx, req, info, handler)
}

var userAPIServiceDesc = grpc.ServiceDesc{
	ServiceName: "mextdomen.UserApi",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetUser", Handler: userAPIGetUserHandler},
		{MethodName: "ListUsers", Handler: userAPIListUsersHandler},
		{MethodName: "CreateUser", Handler: userAPICreateUserHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mextdomen/userapi.proto",
}

func authServiceLoginHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(LoginRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Login(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mextdomen.AuthService/Login"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).Login(ctx, req.(*LoginRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func authServiceValidateTokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ValidateTokenRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ValidateToken(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mextdomen.AuthService/ValidateToken"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).ValidateToken(ctx, req.(*ValidateTokenRequest))
	}
	return interceptor(ctx, req, info, handler)
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: "mextdomen.AuthService",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: authServiceLoginHandler},
		{MethodName: "ValidateToken", Handler: authServiceValidateTokenHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mextdomen/authservice.proto",
}
