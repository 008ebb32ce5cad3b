package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErlanBelekov/crm-backend/internal/domain"
	"github.com/ErlanBelekov/crm-backend/internal/transport/http/handler"
	"github.com/ErlanBelekov/crm-backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	register       func(ctx context.Context, in usecase.RegisterInput) (*domain.AuthPayload, error)
	login          func(ctx context.Context, email, password string) (*domain.AuthPayload, error)
	forgotPassword func(ctx context.Context, email string) error
	resetPassword  func(ctx context.Context, email, token, newPassword string) error
	me             func(ctx context.Context, userID string) (*domain.PublicUser, error)
}

func (f *fakeAuthUsecase) Register(ctx context.Context, in usecase.RegisterInput) (*domain.AuthPayload, error) {
	return f.register(ctx, in)
}

func (f *fakeAuthUsecase) Login(ctx context.Context, email, password string) (*domain.AuthPayload, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	return f.forgotPassword(ctx, email)
}

func (f *fakeAuthUsecase) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return f.resetPassword(ctx, email, token, newPassword)
}

func (f *fakeAuthUsecase) Me(ctx context.Context, userID string) (*domain.PublicUser, error) {
	return f.me(ctx, userID)
}

var testPayload = &domain.AuthPayload{
	AccessToken: "header.payload.signature",
	User: domain.PublicUser{
		ID: "user-1", Name: "Ana", Email: "ana@x.com", Role: domain.RoleUser, APIKey: "key-1",
	},
}

var validToken = strings.Repeat("ab", 32)

func newTestEngine(uc *fakeAuthUsecase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewAuthHandler(uc, logger)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/forgot-password", h.ForgotPassword)
	r.POST("/auth/reset-password", h.ResetPassword)
	r.GET("/auth/me", func(c *gin.Context) { c.Set("userID", "user-1") }, h.Me)
	return r
}

func do(t *testing.T, uc *fakeAuthUsecase, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(uc).ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body.Error
}

// ---- Register ----

func TestRegister_Success_Returns201WithPayload(t *testing.T) {
	var got usecase.RegisterInput
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, in usecase.RegisterInput) (*domain.AuthPayload, error) {
			got = in
			return testPayload, nil
		},
	}

	w := do(t, uc, http.MethodPost, "/auth/register",
		`{"email":"ana@x.com","password":"pw1-secret","name":"Ana","role":"admin"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	if got.Role != domain.RoleAdmin || got.Email != "ana@x.com" {
		t.Errorf("usecase input = %+v", got)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["accessToken"] != testPayload.AccessToken {
		t.Errorf("accessToken = %v", body["accessToken"])
	}
	user, _ := body["user"].(map[string]any)
	for _, k := range []string{"id", "name", "email", "role", "apiKey"} {
		if _, ok := user[k]; !ok {
			t.Errorf("user.%s missing from %v", k, user)
		}
	}
	if _, ok := user["passwordHash"]; ok {
		t.Error("passwordHash leaked in response")
	}
}

func TestRegister_Validation_Returns400(t *testing.T) {
	cases := map[string]string{
		"bad json":      `{bad json}`,
		"bad email":     `{"email":"nope","password":"pw1-secret","name":"Ana"}`,
		"short pw":      `{"email":"ana@x.com","password":"pw","name":"Ana"}`,
		"missing name":  `{"email":"ana@x.com","password":"pw1-secret"}`,
		"blank name":    `{"email":"ana@x.com","password":"pw1-secret","name":"   "}`,
		"unknown role":  `{"email":"ana@x.com","password":"pw1-secret","name":"Ana","role":"root"}`,
		"pw over limit": `{"email":"ana@x.com","password":"` + strings.Repeat("x", 73) + `","name":"Ana"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if w := do(t, &fakeAuthUsecase{}, http.MethodPost, "/auth/register", body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestRegister_TrimsName(t *testing.T) {
	var got usecase.RegisterInput
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, in usecase.RegisterInput) (*domain.AuthPayload, error) {
			got = in
			return testPayload, nil
		},
	}

	w := do(t, uc, http.MethodPost, "/auth/register", `{"email":"ana@x.com","password":"pw1-secret","name":"  Ana  "}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if got.Name != "Ana" {
		t.Errorf("name = %q, want %q", got.Name, "Ana")
	}
}

func TestRegister_EmailTaken_Returns409(t *testing.T) {
	uc := &fakeAuthUsecase{
		register: func(context.Context, usecase.RegisterInput) (*domain.AuthPayload, error) {
			return nil, domain.ErrEmailTaken
		},
	}

	w := do(t, uc, http.MethodPost, "/auth/register", `{"email":"ana@x.com","password":"pw1-secret","name":"Ana"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Email already registered" {
		t.Errorf("error = %q", msg)
	}
}

func TestRegister_InternalError_Returns500(t *testing.T) {
	uc := &fakeAuthUsecase{
		register: func(context.Context, usecase.RegisterInput) (*domain.AuthPayload, error) {
			return nil, errors.New("db down")
		},
	}

	w := do(t, uc, http.MethodPost, "/auth/register", `{"email":"ana@x.com","password":"pw1-secret","name":"Ana"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if msg := errorMessage(t, w); strings.Contains(msg, "db down") {
		t.Errorf("internal error leaked: %q", msg)
	}
}

// ---- Login ----

func TestLogin_Success_Returns200(t *testing.T) {
	uc := &fakeAuthUsecase{
		login: func(context.Context, string, string) (*domain.AuthPayload, error) { return testPayload, nil },
	}

	w := do(t, uc, http.MethodPost, "/auth/login", `{"email":"ana@x.com","password":"pw1-secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), testPayload.AccessToken) {
		t.Errorf("body %q missing access token", w.Body.String())
	}
}

func TestLogin_InvalidCredentials_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		login: func(context.Context, string, string) (*domain.AuthPayload, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}

	w := do(t, uc, http.MethodPost, "/auth/login", `{"email":"ana@x.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Invalid credentials" {
		t.Errorf("error = %q", msg)
	}
}

// ---- ForgotPassword ----

func TestForgotPassword_InvalidEmail_Returns400(t *testing.T) {
	if w := do(t, &fakeAuthUsecase{}, http.MethodPost, "/auth/forgot-password", `{"email":"not-an-email"}`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestForgotPassword_UsecaseError_StillReturns200(t *testing.T) {
	uc := &fakeAuthUsecase{
		forgotPassword: func(context.Context, string) error { return errors.New("internal failure") },
	}

	w := do(t, uc, http.MethodPost, "/auth/forgot-password", `{"email":"ana@x.com"}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (must not reveal errors)", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

// ---- ResetPassword ----

func TestResetPassword_Success_Returns200(t *testing.T) {
	var gotToken, gotPassword string
	uc := &fakeAuthUsecase{
		resetPassword: func(_ context.Context, _, token, pw string) error {
			gotToken, gotPassword = token, pw
			return nil
		},
	}

	w := do(t, uc, http.MethodPost, "/auth/reset-password",
		`{"email":"ana@x.com","token":"`+validToken+`","newPassword":"pw2-secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if gotToken != validToken || gotPassword != "pw2-secret" {
		t.Errorf("usecase got token=%q pw=%q", gotToken, gotPassword)
	}
}

func TestResetPassword_InvalidToken_Returns400Generic(t *testing.T) {
	uc := &fakeAuthUsecase{
		resetPassword: func(context.Context, string, string, string) error { return domain.ErrResetTokenInvalid },
	}

	w := do(t, uc, http.MethodPost, "/auth/reset-password",
		`{"email":"ana@x.com","token":"`+validToken+`","newPassword":"pw2-secret"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Invalid or expired token" {
		t.Errorf("error = %q", msg)
	}
}

func TestResetPassword_MalformedToken_Returns400(t *testing.T) {
	w := do(t, &fakeAuthUsecase{}, http.MethodPost, "/auth/reset-password",
		`{"email":"ana@x.com","token":"not-hex","newPassword":"pw2-secret"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---- Me ----

func TestMe_ReturnsPublicUser(t *testing.T) {
	uc := &fakeAuthUsecase{
		me: func(_ context.Context, id string) (*domain.PublicUser, error) {
			u := testPayload.User
			u.ID = id
			return &u, nil
		},
	}

	w := do(t, uc, http.MethodGet, "/auth/me", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"id":"user-1"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestMe_DeletedUser_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		me: func(context.Context, string) (*domain.PublicUser, error) { return nil, domain.ErrUserNotFound },
	}

	if w := do(t, uc, http.MethodGet, "/auth/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
