package leads

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/brasil-legalize/case-engine/internal/auth"
	"github.com/brasil-legalize/case-engine/internal/credentials"
	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

func newTestApp(t *testing.T) (*fiber.App, *lifecycle.Engine) {
	t.Helper()
	eng := lifecycle.New(store.NewMemoryStore(), credentials.NewIssuer())
	h := NewHandler(eng)

	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Post("/api/leads", h.Create)
	op := app.Group("/api", func(c *fiber.Ctx) error {
		c.Locals("operatorID", "op-1")
		c.Locals("role", string(models.RoleStaff))
		return c.Next()
	})
	op.Get("/leads", h.List)
	op.Get("/leads/:id", h.Get)
	op.Post("/leads/:id/convert", h.Convert)
	return app, eng
}

func jsonReq(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request, want int, out any) {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: want %d, got %d: %s", req.Method, req.URL.Path, want, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func submit(t *testing.T, app *fiber.App, body string) string {
	t.Helper()
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	do(t, app, jsonReq("POST", "/api/leads", body), fiber.StatusCreated, &out)
	if out.ID == "" || out.Status != "new" {
		t.Fatalf("unexpected intake response %+v", out)
	}
	return out.ID
}

const intake = `{"name":"Ana Souza","email":"Ana@Example.com","country":"br","service_type":"residency",
"message":"Call me at +55 11 91234-5678 or ana@example.com"}`

/* ============================================================================
   Tests
   ============================================================================ */

func TestCreate_PublicIntake(t *testing.T) {
	app, _ := newTestApp(t)
	id := submit(t, app, intake)

	var l models.Lead
	do(t, app, jsonReq("GET", "/api/leads/"+id, ""), fiber.StatusOK, &l)
	if l.Email != "ana@example.com" || l.Country != "BR" || l.Status != models.LeadNew {
		t.Fatalf("unexpected lead %+v", l)
	}
}

func TestCreate_Validation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := app.Test(jsonReq("POST", "/api/leads", `{"name":"A","email":"nope","country":"Brazil"}`))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
	var ve models.ValidationErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&ve)
	for _, field := range []string{"name", "email", "country", "service_type"} {
		if len(ve.Errors[field]) == 0 {
			t.Fatalf("want error on %s, got %+v", field, ve.Errors)
		}
	}
}

func TestList_RedactsPreviewAndFilters(t *testing.T) {
	app, _ := newTestApp(t)
	id := submit(t, app, intake)
	submit(t, app, `{"name":"Bruno Lima","service_type":"citizenship"}`)
	do(t, app, jsonReq("POST", "/api/leads/"+id+"/convert", ""), fiber.StatusCreated, nil)

	var page models.Page[LeadListItem]
	do(t, app, jsonReq("GET", "/api/leads", ""), fiber.StatusOK, &page)
	if page.Total != 2 {
		t.Fatalf("want 2 leads, got %d", page.Total)
	}

	do(t, app, jsonReq("GET", "/api/leads?status=converted", ""), fiber.StatusOK, &page)
	if page.Total != 1 || page.Items[0].ID != id || page.Items[0].ConvertedCaseID == nil {
		t.Fatalf("converted filter: %+v", page)
	}
	preview := page.Items[0].Preview
	if strings.Contains(preview, "ana@example.com") || strings.Contains(preview, "91234") {
		t.Fatalf("preview leaks contact data: %q", preview)
	}

	do(t, app, jsonReq("GET", "/api/leads?status=lost", ""), fiber.StatusBadRequest, nil)
}

func TestConvert_DefaultsAndTwice(t *testing.T) {
	app, eng := newTestApp(t)
	id := submit(t, app, intake)

	var cs models.Case
	do(t, app, jsonReq("POST", "/api/leads/"+id+"/convert", `{"package":"premium"}`), fiber.StatusCreated, &cs)
	if cs.Phase != models.PhaseLead || cs.Status != models.StatusNew || cs.ServiceType != "residency" {
		t.Fatalf("unexpected case %+v", cs)
	}
	if cs.LeadID == nil || *cs.LeadID != id || cs.ClientID == nil {
		t.Fatal("case must link the lead and a new client")
	}

	cl, err := eng.GetClient(context.Background(), *cs.ClientID)
	if err != nil {
		t.Fatal(err)
	}
	if cl.Name != "Ana Souza" || cl.Email != "ana@example.com" {
		t.Fatalf("client not built from lead: %+v", cl)
	}

	do(t, app, jsonReq("POST", "/api/leads/"+id+"/convert", ""), fiber.StatusConflict, nil)
}

func TestConvert_Errors(t *testing.T) {
	app, _ := newTestApp(t)
	id := submit(t, app, intake)

	do(t, app, jsonReq("POST", "/api/leads/"+id+"/convert", `{"phase":3,"status":"new"}`), fiber.StatusUnprocessableEntity, nil)
	do(t, app, jsonReq("POST", "/api/leads/"+id+"/convert", `{"status":"finished"}`), fiber.StatusBadRequest, nil)
	do(t, app, jsonReq("POST", "/api/leads/"+id+"/convert",
		`{"client_id":"6f1c1f3e-2b7a-4c39-9a3e-3d0f5a0e9b11"}`), fiber.StatusNotFound, nil)
	do(t, app, jsonReq("POST", "/api/leads/00000000-0000-0000-0000-000000000000/convert", ""), fiber.StatusNotFound, nil)

	var l models.Lead
	do(t, app, jsonReq("GET", "/api/leads/"+id, ""), fiber.StatusOK, &l)
	if l.Status != models.LeadNew {
		t.Fatal("failed conversions must leave the lead new")
	}
}
