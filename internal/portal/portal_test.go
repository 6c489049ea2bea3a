package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brasil-legalize/case-engine/internal/auth"
	"github.com/brasil-legalize/case-engine/internal/credentials"
	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

func setup(t *testing.T) (*fiber.App, *models.Case) {
	t.Helper()
	eng := lifecycle.New(store.NewMemoryStore(), credentials.NewIssuer())
	cs, err := eng.CreateCase(context.Background(), lifecycle.CreateCaseInput{
		ServiceType: "residency", Phase: models.PhasePotential, Status: models.StatusPaymentReceived,
	}, "op-1")
	require.NoError(t, err)
	require.NotNil(t, cs.Token)

	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Post("/api/portal/view", NewHandler(eng).View)
	return app, cs
}

func viewReq(token, password string) *http.Request {
	body, _ := json.Marshal(map[string]string{"token": token, "password": password})
	req := httptest.NewRequest("POST", "/api/portal/view", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestView(t *testing.T) {
	app, cs := setup(t)

	resp, err := app.Test(viewReq(*cs.Token, *cs.Password))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var view lifecycle.PortalCase
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, cs.ID, view.ID)
	assert.Equal(t, models.StatusPaymentReceived, view.Status)
	require.Len(t, view.Timeline, 1)
	assert.Equal(t, "team", view.Timeline[0].By)
}

func TestView_WrongCredentialsLookTheSame(t *testing.T) {
	app, cs := setup(t)

	for _, req := range []*http.Request{
		viewReq(*cs.Token, "wrong-password"),
		viewReq("pt_unknown", *cs.Password),
	} {
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "invalid credentials", body.Message)
	}

	resp, err := app.Test(viewReq("", ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
