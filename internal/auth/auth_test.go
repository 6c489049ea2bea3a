package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

func newTestApp(t *testing.T) (*fiber.App, *Handler, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	if _, err := EnsureAdmin(context.Background(), st, "Admin@Firm.com", "s3cret-pass"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	j := NewJWT("test-secret", time.Hour)
	h := NewHandler(st, j)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/login", h.Login)
	app.Get("/api/me", j.RequireAuth(), h.Me)
	app.Post("/api/operators", j.RequireAuth(), RequireRole(models.RoleAdmin), h.CreateOperator)
	return app, h, st
}

func jsonReq(method, url, body, token string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp, err := app.Test(jsonReq("POST", "/api/login", `{"email":"`+email+`","password":"`+password+`"}`, ""))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out AuthResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out.Token
}

/* ============================================================================
   Tests
   ============================================================================ */

func Test_Login_Me(t *testing.T) {
	app, _, _ := newTestApp(t)
	token := login(t, app, "admin@firm.com", "s3cret-pass")

	resp, _ := app.Test(jsonReq("GET", "/api/me", "", token))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var me OperatorProfileResponse
	_ = json.NewDecoder(resp.Body).Decode(&me)
	if me.Email != "admin@firm.com" || me.Role != models.RoleAdmin {
		t.Fatalf("unexpected profile: %+v", me)
	}
}

func Test_Login_WrongPassword(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := app.Test(jsonReq("POST", "/api/login", `{"email":"admin@firm.com","password":"nope"}`, ""))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
	var body models.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if !body.Error || body.Code != "UNAUTHORIZED" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func Test_Login_ValidationShape(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := app.Test(jsonReq("POST", "/api/login", `{"email":"not-an-email"}`, ""))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
	var body models.ValidationErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Errors["email"]) == 0 || len(body.Errors["password"]) == 0 {
		t.Fatalf("expected field errors, got %+v", body.Errors)
	}
}

func Test_RequireAuth_RejectsMissingAndForeignTokens(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := app.Test(jsonReq("GET", "/api/me", "", ""))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("no token: want 401, got %d", resp.StatusCode)
	}

	foreign, _ := NewJWT("other-secret", time.Hour).Issue("x", models.RoleAdmin)
	resp, _ = app.Test(jsonReq("GET", "/api/me", "", foreign))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("foreign token: want 401, got %d", resp.StatusCode)
	}

	expired := NewJWT("test-secret", -time.Minute)
	tok, _ := expired.Issue("x", models.RoleAdmin)
	resp, _ = app.Test(jsonReq("GET", "/api/me", "", tok))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expired token: want 401, got %d", resp.StatusCode)
	}
}

func Test_CreateOperator_AdminOnly(t *testing.T) {
	app, _, _ := newTestApp(t)
	admin := login(t, app, "admin@firm.com", "s3cret-pass")

	body := `{"role":"staff","name":"Ana","email":"ana@firm.com","password":"password1"}`
	resp, _ := app.Test(jsonReq("POST", "/api/operators", body, admin))
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("want 201, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(jsonReq("POST", "/api/operators", body, admin))
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("duplicate email: want 409, got %d", resp.StatusCode)
	}

	staff := login(t, app, "ana@firm.com", "password1")
	resp, _ = app.Test(jsonReq("POST", "/api/operators",
		`{"role":"admin","name":"Eve","email":"eve@firm.com","password":"password1"}`, staff))
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("staff: want 403, got %d", resp.StatusCode)
	}
}

func Test_EnsureAdmin_OnlyOnce(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	created, err := EnsureAdmin(ctx, st, "a@firm.com", "pw-123456")
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	created, err = EnsureAdmin(ctx, st, "b@firm.com", "pw-123456")
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}
	created, _ = EnsureAdmin(ctx, store.NewMemoryStore(), "", "")
	if created {
		t.Fatal("empty credentials must not seed")
	}
}
