package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/ErlanBelekov/locations-api/internal/transport/http/handler"
	"github.com/ErlanBelekov/locations-api/internal/transport/http/middleware"
	"github.com/ErlanBelekov/locations-api/internal/validate"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	register func(ctx context.Context, in validate.Input) (*domain.User, error)
	login    func(ctx context.Context, email, password string) (*domain.TokenPair, error)
	userInfo func(ctx context.Context, claims *domain.Claims) (*domain.User, error)
	refresh  func(ctx context.Context, raw string) (*domain.TokenPair, error)
	logout   func(ctx context.Context, claims *domain.Claims) error
}

func (f *fakeAuthUsecase) Register(ctx context.Context, in validate.Input) (*domain.User, error) {
	return f.register(ctx, in)
}

func (f *fakeAuthUsecase) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuthUsecase) UserInfo(ctx context.Context, claims *domain.Claims) (*domain.User, error) {
	return f.userInfo(ctx, claims)
}

func (f *fakeAuthUsecase) Refresh(ctx context.Context, raw string) (*domain.TokenPair, error) {
	return f.refresh(ctx, raw)
}

func (f *fakeAuthUsecase) Logout(ctx context.Context, claims *domain.Claims) error {
	return f.logout(ctx, claims)
}

var testClaims = &domain.Claims{UserID: "user-1", TokenID: "jti-1", Use: domain.TokenUseAccess}

// withClaims stands in for the auth middleware.
func withClaims(c *gin.Context) {
	middleware.WithClaims(c, testClaims)
	c.Next()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func newAuthEngine(uc *fakeAuthUsecase) *gin.Engine {
	h := handler.NewAuthHandler(uc, testLogger())

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.GET("/auth/userinfo", withClaims, h.UserInfo)
	r.POST("/auth/logout", withClaims, h.Logout)
	r.GET("/auth/userinfo-anon", h.UserInfo)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

var testPair = &domain.TokenPair{AccessToken: "acc", IDToken: "idt", TokenType: "bearer", ExpiresIn: 3600}

// ---- Register ----

func TestRegister_MalformedJSON_Returns400(t *testing.T) {
	w := do(t, newAuthEngine(&fakeAuthUsecase{}), http.MethodPost, "/auth/register", `{bad json}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRegister_ValidationError_Returns400WithFieldMap(t *testing.T) {
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, _ validate.Input) (*domain.User, error) {
			verr := domain.NewValidationError()
			verr.Add("email", "The email has already been taken.")
			return nil, verr
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/register", `{"email":"a@b.co"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var fields map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := fields["email"]; len(got) != 1 || got[0] != "The email has already been taken." {
		t.Errorf("email errors = %v", got)
	}
}

func TestRegister_PassesRawFieldsThrough(t *testing.T) {
	var got validate.Input
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, in validate.Input) (*domain.User, error) {
			got = in
			return &domain.User{ID: "u1", Name: "Ana", Email: "ana@x.com", PasswordHash: "$2a$secret"}, nil
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":12345678}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if _, isString := got["password"].(string); isString {
		t.Error("non-string password must reach validation untouched")
	}
}

func TestRegister_Success_OmitsPassword(t *testing.T) {
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, _ validate.Input) (*domain.User, error) {
			return &domain.User{ID: "u1", Name: "Ana", Email: "ana@x.com", PasswordHash: "$2a$secret", CreatedAt: time.Now()}, nil
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret") || strings.Contains(w.Body.String(), "password") {
		t.Errorf("body leaks password: %s", w.Body.String())
	}
	body := decodeBody(t, w)
	if body["message"] != "User created successfully" {
		t.Errorf("message = %v", body["message"])
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "ana@x.com" || user["id"] != "u1" {
		t.Errorf("user = %v", user)
	}
}

func TestRegister_InternalError_Returns500(t *testing.T) {
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, _ validate.Input) (*domain.User, error) {
			return nil, errors.New("db down")
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/register", `{"name":"Ana"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---- Login ----

func TestLogin_InvalidCredentials_Returns401Unauthorized(t *testing.T) {
	uc := &fakeAuthUsecase{
		login: func(_ context.Context, _, _ string) (*domain.TokenPair, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":"a@b.co","password":"wrong"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Unauthorized" {
		t.Errorf("error = %v", body["error"])
	}
	if _, ok := body["access_token"]; ok {
		t.Error("token issued on failed login")
	}
}

func TestLogin_Success_ReturnsEnvelope(t *testing.T) {
	var gotEmail, gotPassword string
	uc := &fakeAuthUsecase{
		login: func(_ context.Context, email, password string) (*domain.TokenPair, error) {
			gotEmail, gotPassword = email, password
			return testPair, nil
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":"a@b.co","password":"secret123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotEmail != "a@b.co" || gotPassword != "secret123" {
		t.Errorf("credentials passed = %q/%q", gotEmail, gotPassword)
	}
	body := decodeBody(t, w)
	if body["access_token"] != "acc" || body["id_token"] != "idt" || body["token_type"] != "bearer" {
		t.Errorf("body = %v", body)
	}
	if body["expires_in"] != float64(3600) {
		t.Errorf("expires_in = %v", body["expires_in"])
	}
}

func TestLogin_NonStringCredentials_PassedAsEmpty(t *testing.T) {
	var gotEmail, gotPassword string
	uc := &fakeAuthUsecase{
		login: func(_ context.Context, email, password string) (*domain.TokenPair, error) {
			gotEmail, gotPassword = email, password
			return nil, domain.ErrInvalidCredentials
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":1,"password":{"p":"secret123"}}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if gotEmail != "" || gotPassword != "" {
		t.Errorf("credentials passed = %q/%q, want empty", gotEmail, gotPassword)
	}
}

func TestLogin_UnreadableBody_Returns401(t *testing.T) {
	called := false
	uc := &fakeAuthUsecase{
		login: func(_ context.Context, _, _ string) (*domain.TokenPair, error) {
			called = true
			return testPair, nil
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/login", `["a@b.co"]`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Unauthorized" {
		t.Errorf("error = %v", body["error"])
	}
	if called {
		t.Error("usecase reached with an unreadable body")
	}
}

func TestLogin_InternalError_Returns500(t *testing.T) {
	uc := &fakeAuthUsecase{
		login: func(_ context.Context, _, _ string) (*domain.TokenPair, error) {
			return nil, errors.New("db down")
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":"a@b.co","password":"x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---- UserInfo ----

func TestUserInfo_NoClaims_Returns401(t *testing.T) {
	w := do(t, newAuthEngine(&fakeAuthUsecase{}), http.MethodGet, "/auth/userinfo-anon", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestUserInfo_UsesClaimsAndOmitsPassword(t *testing.T) {
	uc := &fakeAuthUsecase{
		userInfo: func(_ context.Context, claims *domain.Claims) (*domain.User, error) {
			return &domain.User{ID: claims.UserID, Name: "Ana", Email: "ana@x.com", PasswordHash: "$2a$hash"}, nil
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodGet, "/auth/userinfo", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["id"] != "user-1" {
		t.Errorf("id = %v", body["id"])
	}
	if strings.Contains(w.Body.String(), "$2a$hash") {
		t.Error("password hash serialized")
	}
}

func TestUserInfo_UserGone_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		userInfo: func(_ context.Context, _ *domain.Claims) (*domain.User, error) {
			return nil, domain.ErrTokenInvalid
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodGet, "/auth/userinfo", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ---- Refresh ----

func TestRefresh_MissingBearer_Returns401(t *testing.T) {
	w := do(t, newAuthEngine(&fakeAuthUsecase{}), http.MethodPost, "/auth/refresh", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRefresh_PassesRawToken(t *testing.T) {
	var got string
	uc := &fakeAuthUsecase{
		refresh: func(_ context.Context, raw string) (*domain.TokenPair, error) {
			got = raw
			return testPair, nil
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/refresh", "", "Authorization", "Bearer old.token.value")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got != "old.token.value" {
		t.Errorf("raw token = %q", got)
	}
	if decodeBody(t, w)["access_token"] != "acc" {
		t.Error("missing new access token")
	}
}

func TestRefresh_PastWindow_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		refresh: func(_ context.Context, _ string) (*domain.TokenPair, error) {
			return nil, domain.ErrTokenInvalid
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/refresh", "", "Authorization", "Bearer stale")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ---- Logout ----

func TestLogout_Success_Returns200(t *testing.T) {
	var got *domain.Claims
	uc := &fakeAuthUsecase{
		logout: func(_ context.Context, claims *domain.Claims) error {
			got = claims
			return nil
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got != testClaims {
		t.Error("logout did not receive the request claims")
	}
	if decodeBody(t, w)["message"] != "User successfully logged out" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestLogout_RevocationFailure_StillReturns200(t *testing.T) {
	uc := &fakeAuthUsecase{
		logout: func(_ context.Context, _ *domain.Claims) error {
			return errors.New("redis down")
		},
	}
	w := do(t, newAuthEngine(uc), http.MethodPost, "/auth/logout", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
