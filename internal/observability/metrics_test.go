package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

func TestMetrics_Recorder(t *testing.T) {
	m := NewMetrics()
	_ = NewMetrics() // private registries never collide

	m.StatusChanged(models.StatusPaymentReceived)
	m.StatusChanged(models.StatusPaymentReceived)
	m.CredentialsIssued()
	m.CasesArchived(3)
	m.Conflict("change_status")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("payment_received")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.credentialsIssued))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.casesArchived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("change_status")))
}

func TestRequestLogger_ObservesDuration(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/cases/:id", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "nope") })

	resp, err := app.Test(httptest.NewRequest("GET", "/cases/APP-1", nil))
	require.NoError(t, err)
	_, _ = io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration, "case_engine_http_request_duration_seconds"))
}

func TestNewLogger_Levels(t *testing.T) {
	for _, lvl := range []string{"", "debug", "warn", "nonsense"} {
		assert.NotNil(t, NewLogger(lvl))
	}
	assert.False(t, NewLogger("warn").Core().Enabled(zap.InfoLevel))
}
