package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

func TestPortalView(t *testing.T) {
	f := newFixture(t, nil)
	c := f.newCase(t, models.PhasePotential, models.StatusAwaitingPayment)
	paid := f.move(t, c.ID, models.StatusPaymentReceived)
	f.clock.Advance(time.Hour)
	_, err := f.eng.AddCaseNote(context.Background(), c.ID, "client asked to reply to ana@firm.com", operator)
	require.NoError(t, err)
	f.newDocument(t, c.ID, "passport")

	view, err := f.eng.PortalView(context.Background(), *paid.Token, *paid.Password)
	require.NoError(t, err)

	assert.Equal(t, c.ID, view.ID)
	assert.Equal(t, models.StatusPaymentReceived, view.Status)
	assert.Nil(t, view.DaysUntilArchive)
	require.Len(t, view.Timeline, 4)
	assert.Equal(t, models.EventDocument, view.Timeline[0].Kind)
	assert.Equal(t, models.EventCreated, view.Timeline[3].Kind)
	assert.Equal(t, "client asked to reply to [redacted email]", view.Timeline[1].Note)
	for _, ev := range view.Timeline {
		assert.Equal(t, "team", ev.By)
	}
	require.Len(t, view.Documents, 1)
	assert.Equal(t, "passport", view.Documents[0].DocumentType)
}

func TestPortalView_BadCredentials(t *testing.T) {
	f := newFixture(t, nil)
	c := f.newCase(t, models.PhasePotential, models.StatusPaymentReceived)

	_, err := f.eng.PortalView(context.Background(), *c.Token, "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.eng.PortalView(context.Background(), "pt_nope", *c.Password)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPortalView_ShowsArchiveCountdown(t *testing.T) {
	f := newFixture(t, nil)
	c := f.newCase(t, models.PhasePotential, models.StatusPaymentReceived)
	f.move(t, c.ID, models.StatusCompleted)
	f.clock.Advance(45 * 24 * time.Hour)

	view, err := f.eng.PortalView(context.Background(), *c.Token, *c.Password)
	require.NoError(t, err)

	require.NotNil(t, view.DaysUntilArchive)
	assert.Equal(t, 45, *view.DaysUntilArchive)
}
