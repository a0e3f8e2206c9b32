package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/auth"
	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/events"
	"github.com/nextdomen/mextdomen/internal/models"
	"github.com/nextdomen/mextdomen/internal/raddb"
)

func newTestRouter(t *testing.T) (http.Handler, *directory.Service, *auth.Service) {
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

	hub := events.NewHub()

	router := NewRouter(RouterConfig{
		Dir:    dir,
		Auth:   authSvc,
		Hub:    hub,
		Logger: zap.NewNop(),
	})
	return router, dir, authSvc
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createTestUser(t *testing.T, dir *directory.Service, username, password string) *models.User {
	t.Helper()
	hash, err := models.NewBcryptPassword(password)
	if err != nil {
		t.Fatalf("NewBcryptPassword: %v", err)
	}
	user := &models.User{
		ID:                 uuid.New(),
		SID:                models.NewNTAuthoritySID(1000),
		Username:           username,
		UserPrincipalName:  username + "@example.test",
		PasswordHash:       hash,
		Enabled:            true,
		LastPasswordChange: time.Now().UTC(),
	}
	if err := dir.CreateUser(user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestHealthEndpointIsUnauthenticated(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUsersRouteRequiresAuthentication(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/users", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("GET /api/users without token: got %d", rec.Code)
	}
}

func TestLoginThenCreateAndFetchUser(t *testing.T) {
	router, dir, _ := newTestRouter(t)
	createTestUser(t, dir, "admin", "correct horse battery staple")

	loginRec := doJSON(t, router, http.MethodPost, "/api/login", "", loginRequest{
		Username: "admin",
		Password: "correct horse battery staple",
	})
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", loginRec.Code, loginRec.Body.String())
	}
	var loginBody struct {
		Data loginResponse `json:"data"`
	}
	if err := json.Unmarshal(loginRec.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	token := loginBody.Data.Token
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	createRec := doJSON(t, router, http.MethodPost, "/api/users", token, createUserRequest{
		Username: "newhire",
		Password: "hunter222222",
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create user: got %d, body %s", createRec.Code, createRec.Body.String())
	}

	getRec := doJSON(t, router, http.MethodGet, "/api/users/newhire", token, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get user: got %d, body %s", getRec.Code, getRec.Body.String())
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router, dir, _ := newTestRouter(t)
	createTestUser(t, dir, "bob", "correcthorsebatterystaple")

	rec := doJSON(t, router, http.MethodPost, "/api/login", "", loginRequest{
		Username: "bob",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login with wrong password: got %d", rec.Code)
	}
}

func TestDeleteUserRejectsSelfDeletion(t *testing.T) {
	router, dir, authSvc := newTestRouter(t)
	user := createTestUser(t, dir, "selfdelete", "hunter2222222")

	token, _, err := authSvc.Login("selfdelete", "hunter2222222")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rec := doJSON(t, router, http.MethodDelete, "/api/users/"+user.Username, token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self-delete: got %d, body %s", rec.Code, rec.Body.String())
	}
}
