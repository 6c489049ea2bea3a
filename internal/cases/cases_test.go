package cases

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

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

const operatorID = "op-1"

// injectAuth stands in for the JWT middleware.
func injectAuth(c *fiber.Ctx) error {
	c.Locals("operatorID", operatorID)
	c.Locals("role", string(models.RoleStaff))
	return c.Next()
}

func newTestApp(t *testing.T) (*fiber.App, *Handler) {
	t.Helper()
	eng := lifecycle.New(store.NewMemoryStore(), credentials.NewIssuer())
	h := NewHandler(eng)

	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	api := app.Group("/api", injectAuth)
	api.Post("/cases", h.Create)
	api.Get("/cases", h.List)
	api.Get("/cases/:id", h.GetDetail)
	api.Post("/cases/:id/status", h.ChangeStatus)
	api.Post("/cases/:id/reopen", h.Reopen)
	api.Post("/cases/:id/notes", h.AddNote)
	api.Get("/cases/:id/archive", h.ArchiveInfo)
	api.Post("/archive/sweep", h.Sweep)
	return app, h
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
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: want %d, got %d: %s", req.Method, req.URL.Path, want, resp.StatusCode, b)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func createCase(t *testing.T, app *fiber.App, phase int, status string) models.Case {
	t.Helper()
	var cs models.Case
	body := `{"service_type":"residency","package":"standard","phase":` +
		strconv.Itoa(phase) + `,"status":"` + status + `"}`
	do(t, app, jsonReq("POST", "/api/cases", body), fiber.StatusCreated, &cs)
	return cs
}

func setStatus(t *testing.T, app *fiber.App, id, status string, want int) models.Case {
	t.Helper()
	var cs models.Case
	var out any = &cs
	if want != fiber.StatusOK {
		out = nil
	}
	do(t, app, jsonReq("POST", "/api/cases/"+id+"/status", `{"status":"`+status+`"}`), want, out)
	return cs
}

/* ============================================================================
   Tests
   ============================================================================ */

func TestCreate_AndDetail(t *testing.T) {
	app, _ := newTestApp(t)
	cs := createCase(t, app, 1, "new")
	if cs.ID == "" || cs.Status != models.StatusNew || cs.Phase != models.PhaseLead {
		t.Fatalf("unexpected case: %+v", cs)
	}

	var detail CaseDetail
	do(t, app, jsonReq("GET", "/api/cases/"+cs.ID, ""), fiber.StatusOK, &detail)
	if len(detail.Timeline) != 1 || detail.Timeline[0].By != operatorID {
		t.Fatalf("want one creation event by operator, got %+v", detail.Timeline)
	}
	if detail.Documents == nil || detail.Notes == nil {
		t.Fatal("relations must be empty lists, not null")
	}
	if detail.DaysUntilArchive != nil {
		t.Fatal("open case has no archive countdown")
	}
}

func TestCreate_ValidationAndTargets(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := app.Test(jsonReq("POST", "/api/cases", `{"service_type":"residency","phase":5,"status":"new"}`))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("phase 5: want 400, got %d", resp.StatusCode)
	}
	var ve models.ValidationErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&ve)
	if len(ve.Errors["phase"]) == 0 {
		t.Fatalf("want phase error, got %+v", ve.Errors)
	}

	// status that exists but belongs to another phase
	do(t, app, jsonReq("POST", "/api/cases", `{"service_type":"residency","phase":1,"status":"completed"}`),
		fiber.StatusUnprocessableEntity, nil)
}

func TestChangeStatus_CredentialsAndArchive(t *testing.T) {
	app, h := newTestApp(t)
	cs := createCase(t, app, 2, "awaiting_payment")

	paid := setStatus(t, app, cs.ID, "payment_received", fiber.StatusOK)
	if paid.Token == nil || paid.Password == nil {
		t.Fatal("payment_received must issue portal credentials")
	}
	if !credentials.IsPortalToken(*paid.Token) {
		t.Fatalf("unexpected token %q", *paid.Token)
	}

	done := setStatus(t, app, cs.ID, "completed", fiber.StatusOK)
	if done.Phase != models.PhaseCompletion || done.CompletedAt == nil {
		t.Fatalf("completed case: %+v", done)
	}
	if *done.Token != *paid.Token {
		t.Fatal("token must not change")
	}

	h.now = func() time.Time { return done.CompletedAt.Add(10 * 24 * time.Hour) }
	var info ArchiveInfo
	do(t, app, jsonReq("GET", "/api/cases/"+cs.ID+"/archive", ""), fiber.StatusOK, &info)
	if !info.Scheduled || info.DaysUntilArchive == nil || *info.DaysUntilArchive != 80 {
		t.Fatalf("want 80 days left, got %+v", info)
	}

	// completed is terminal for ChangeStatus
	setStatus(t, app, cs.ID, "processing", fiber.StatusConflict)
}

func TestChangeStatus_Errors(t *testing.T) {
	app, _ := newTestApp(t)
	cs := createCase(t, app, 1, "new")

	setStatus(t, app, cs.ID, "bogus", fiber.StatusUnprocessableEntity)
	setStatus(t, app, "APP-2026-NOPE00", "contacted", fiber.StatusNotFound)

	do(t, app, jsonReq("POST", "/api/cases/"+cs.ID+"/status", `{"status":"contacted","payment_amount_cents":0}`),
		fiber.StatusBadRequest, nil)
	do(t, app, jsonReq("POST", "/api/cases/"+cs.ID+"/status", `{`), fiber.StatusBadRequest, nil)
}

func TestReopen(t *testing.T) {
	app, _ := newTestApp(t)
	cs := createCase(t, app, 3, "onboarding")

	do(t, app, jsonReq("POST", "/api/cases/"+cs.ID+"/reopen", `{"phase":3,"status":"documents_pending"}`),
		fiber.StatusConflict, nil)

	setStatus(t, app, cs.ID, "completed", fiber.StatusOK)

	do(t, app, jsonReq("POST", "/api/cases/"+cs.ID+"/reopen", `{"phase":3,"status":"completed"}`),
		fiber.StatusUnprocessableEntity, nil)

	var reopened models.Case
	do(t, app, jsonReq("POST", "/api/cases/"+cs.ID+"/reopen", `{"phase":3,"status":"documents_pending"}`),
		fiber.StatusOK, &reopened)
	if reopened.Status != models.StatusDocumentsPending || reopened.CompletedAt != nil || reopened.ArchiveAfter != nil {
		t.Fatalf("reopen should clear completion: %+v", reopened)
	}
}

func TestList_Filters(t *testing.T) {
	app, _ := newTestApp(t)
	createCase(t, app, 1, "new")
	createCase(t, app, 1, "contacted")
	createCase(t, app, 3, "onboarding")

	var page models.Page[CaseListItem]
	do(t, app, jsonReq("GET", "/api/cases?phase=1", ""), fiber.StatusOK, &page)
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("phase=1: want 2, got %+v", page)
	}

	do(t, app, jsonReq("GET", "/api/cases?status=onboarding", ""), fiber.StatusOK, &page)
	if page.Total != 1 || page.Items[0].Status != models.StatusOnboarding {
		t.Fatalf("status=onboarding: got %+v", page)
	}

	do(t, app, jsonReq("GET", "/api/cases?pageSize=2", ""), fiber.StatusOK, &page)
	if page.Total != 3 || len(page.Items) != 2 || page.Pages != 2 {
		t.Fatalf("paging: got %+v", page)
	}

	do(t, app, jsonReq("GET", "/api/cases?phase=9", ""), fiber.StatusBadRequest, nil)
	do(t, app, jsonReq("GET", "/api/cases?status=nope", ""), fiber.StatusBadRequest, nil)
	do(t, app, jsonReq("GET", "/api/cases?archived=maybe", ""), fiber.StatusBadRequest, nil)
}

func TestAddNote(t *testing.T) {
	app, _ := newTestApp(t)
	cs := createCase(t, app, 1, "new")

	do(t, app, jsonReq("POST", "/api/cases/"+cs.ID+"/notes", `{"body":""}`), fiber.StatusBadRequest, nil)

	var n models.Note
	do(t, app, jsonReq("POST", "/api/cases/"+cs.ID+"/notes", `{"body":"called the consulate"}`), fiber.StatusCreated, &n)
	if n.By != operatorID || n.CaseID == nil || *n.CaseID != cs.ID {
		t.Fatalf("unexpected note %+v", n)
	}
}

func TestSweep_NothingDue(t *testing.T) {
	app, _ := newTestApp(t)
	cs := createCase(t, app, 4, "processing")
	setStatus(t, app, cs.ID, "completed", fiber.StatusOK)

	var out struct {
		Archived int  `json:"archived"`
		Partial  bool `json:"partial"`
	}
	do(t, app, jsonReq("POST", "/api/archive/sweep", ""), fiber.StatusOK, &out)
	if out.Archived != 0 || out.Partial {
		t.Fatalf("fresh completion must not archive: %+v", out)
	}
}
