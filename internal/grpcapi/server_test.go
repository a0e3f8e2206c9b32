package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/nextdomen/mextdomen/internal/auth"
	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/raddb"
)

func newTestServer(t *testing.T) (*directory.Service, *auth.Service, string) {
	t.Helper()
	key, err := raddb.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	dir, err := directory.Open(t.TempDir(), key, zap.NewNop())
	if err != nil {
		t.Fatalf("directory.Open: %v", err)
	}
	t.Cleanup(func() { dir.Close() })

	jwtMgr, err := auth.NewJWTManagerGenerated("mextdomen-test")
	if err != nil {
		t.Fatalf("NewJWTManagerGenerated: %v", err)
	}
	authSvc := auth.NewService(dir, jwtMgr)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	srv := New(dir, authSvc, zap.NewNop())
	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&userAPIServiceDesc, srv)
	grpcServer.RegisterService(&authServiceDesc, srv)

	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.Stop)

	return dir, authSvc, lis.Addr().String()
}

func dialTest(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invokeUnary(ctx context.Context, conn *grpc.ClientConn, method string, req, resp any) error {
	return conn.Invoke(ctx, method, req, resp)
}

func TestCreateUserThenGetUser(t *testing.T) {
	_, _, addr := newTestServer(t)
	conn := dialTest(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var createResp CreateUserResponse
	err := invokeUnary(ctx, conn, "/mextdomen.UserApi/CreateUser", &CreateUserRequest{
		Username: "alice",
		Password: "hunter222222",
	}, &createResp)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if createResp.User.Username != "alice" {
		t.Fatalf("got username %q, want alice", createResp.User.Username)
	}

	var getResp GetUserResponse
	err = invokeUnary(ctx, conn, "/mextdomen.UserApi/GetUser", &GetUserRequest{Username: "alice"}, &getResp)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if getResp.User.Id != createResp.User.Id {
		t.Fatalf("GetUser returned a different user id")
	}
}

func TestGetUserNotFound(t *testing.T) {
	_, _, addr := newTestServer(t)
	conn := dialTest(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resp GetUserResponse
	err := invokeUnary(ctx, conn, "/mextdomen.UserApi/GetUser", &GetUserRequest{Username: "ghost"}, &resp)
	if err == nil {
		t.Fatal("expected an error for a missing user")
	}
	if status.Code(err).String() != "NotFound" {
		t.Fatalf("got code %v, want NotFound", status.Code(err))
	}
}

func TestLoginThenValidateToken(t *testing.T) {
	dir, _, addr := newTestServer(t)
	conn := dialTest(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var createResp CreateUserResponse
	if err := invokeUnary(ctx, conn, "/mextdomen.UserApi/CreateUser", &CreateUserRequest{
		Username: "bob",
		Password: "hunter222222",
	}, &createResp); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	var loginResp LoginResponse
	err := invokeUnary(ctx, conn, "/mextdomen.AuthService/Login", &LoginRequest{
		Username: "bob",
		Password: "hunter222222",
	}, &loginResp)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loginResp.Token == "" {
		t.Fatal("expected a non-empty token")
	}

	var validateResp ValidateTokenResponse
	err = invokeUnary(ctx, conn, "/mextdomen.AuthService/ValidateToken", &ValidateTokenRequest{
		Token: loginResp.Token,
	}, &validateResp)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if !validateResp.Valid {
		t.Fatal("expected token to validate")
	}

	_ = dir
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, _, addr := newTestServer(t)
	conn := dialTest(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := createTestGrpcUser(ctx, conn, "carol"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	var resp LoginResponse
	err := invokeUnary(ctx, conn, "/mextdomen.AuthService/Login", &LoginRequest{
		Username: "carol",
		Password: "wrong",
	}, &resp)
	if err == nil {
		t.Fatal("expected an error for wrong password")
	}
	if status.Code(err).String() != "Unauthenticated" {
		t.Fatalf("got code %v, want Unauthenticated", status.Code(err))
	}
}

func createTestGrpcUser(ctx context.Context, conn *grpc.ClientConn, username string) (*CreateUserResponse, error) {
	var resp CreateUserResponse
	err := invokeUnary(ctx, conn, "/mextdomen.UserApi/CreateUser", &CreateUserRequest{
		Username: username,
		Password: "hunter222222",
	}, &resp)
	return &resp, err
}
