package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

// runContract exercises the behaviour every Store must share.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("stale update conflicts", func(t *testing.T) { testStaleUpdate(t, newStore(t)) })
	t.Run("failed tx keeps nothing", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("duplicate token conflicts", func(t *testing.T) { testDuplicateToken(t, newStore(t)) })
	t.Run("timeline order", func(t *testing.T) { testTimelineOrder(t, newStore(t)) })
	t.Run("archivable", func(t *testing.T) { testArchivable(t, newStore(t)) })
	t.Run("document cas", func(t *testing.T) { testDocumentCAS(t, newStore(t)) })
	t.Run("request by token", func(t *testing.T) { testRequestByToken(t, newStore(t)) })
	t.Run("concurrent writers on one case", func(t *testing.T) { testConcurrentCaseWrites(t, newStore(t)) })
	t.Run("view keeps nothing", func(t *testing.T) { testViewDiscardsWrites(t, newStore(t)) })
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func caseID() string { return "APP-2026-" + uuid.NewString()[:6] }

func seedCase(t *testing.T, st Store, mut func(c *models.Case)) *models.Case {
	t.Helper()
	c := &models.Case{
		ID:          caseID(),
		ServiceType: "residency",
		Phase:       models.PhaseLead,
		Status:      models.StatusNew,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
	if mut != nil {
		mut(c)
	}
	require.NoError(t, st.Tx(context.Background(), func(r Repo) error { return r.InsertCase(context.Background(), c) }))
	return c
}

func loadCase(t *testing.T, st Store, id string) *models.Case {
	t.Helper()
	var out *models.Case
	require.NoError(t, st.Tx(context.Background(), func(r Repo) error {
		c, err := r.GetCase(context.Background(), id)
		out = c
		return err
	}))
	return out
}

func testStaleUpdate(t *testing.T, st Store) {
	ctx := context.Background()
	c := seedCase(t, st, nil)
	stale := loadCase(t, st, c.ID)

	fresh := loadCase(t, st, c.ID)
	fresh.Status = models.StatusContacted
	require.NoError(t, st.Tx(ctx, func(r Repo) error { return r.UpdateCase(ctx, fresh) }))
	assert.Equal(t, stale.Version+1, fresh.Version)

	stale.Status = models.StatusMeetingScheduled
	err := st.Tx(ctx, func(r Repo) error { return r.UpdateCase(ctx, stale) })
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, models.StatusContacted, loadCase(t, st, c.ID).Status)
}

func testRollback(t *testing.T, st Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	id := caseID()

	err := st.Tx(ctx, func(r Repo) error {
		c := &models.Case{ID: id, ServiceType: "x", Phase: models.PhaseLead, Status: models.StatusNew, CreatedAt: t0}
		if err := r.InsertCase(ctx, c); err != nil {
			return err
		}
		if err := r.AppendEvent(ctx, &models.TimelineEvent{
			CaseID: id, Kind: models.EventCreated, Status: models.StatusNew, Timestamp: t0, By: "op",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = st.Tx(ctx, func(r Repo) error {
		_, err := r.GetCase(ctx, id)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func testDuplicateToken(t *testing.T, st Store) {
	tok := "pt_" + uuid.NewString()
	seedCase(t, st, func(c *models.Case) { c.Token = &tok })

	ctx := context.Background()
	err := st.Tx(ctx, func(r Repo) error {
		return r.InsertCase(ctx, &models.Case{
			ID: caseID(), ServiceType: "x", Phase: models.PhaseLead, Status: models.StatusNew, Token: &tok, CreatedAt: t0,
		})
	})
	assert.ErrorIs(t, err, ErrConflict)

	var found *models.Case
	require.NoError(t, st.Tx(ctx, func(r Repo) error {
		c, err := r.FindCaseByToken(ctx, tok)
		found = c
		return err
	}))
	assert.Equal(t, tok, *found.Token)
}

func testTimelineOrder(t *testing.T, st Store) {
	ctx := context.Background()
	c := seedCase(t, st, nil)
	notes := []struct {
		at   time.Time
		note string
	}{
		{t0.Add(time.Minute), "second"},
		{t0.Add(time.Minute), "third"},
		{t0, "first"},
	}
	require.NoError(t, st.Tx(ctx, func(r Repo) error {
		for _, n := range notes {
			if err := r.AppendEvent(ctx, &models.TimelineEvent{
				CaseID: c.ID, Kind: models.EventNote, Status: c.Status, Timestamp: n.at, By: "op", Note: n.note,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	var got []models.TimelineEvent
	require.NoError(t, st.Tx(ctx, func(r Repo) error {
		var err error
		got, err = r.ListEvents(ctx, c.ID)
		return err
	}))
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Note)
	assert.Equal(t, "second", got[1].Note)
	assert.Equal(t, "third", got[2].Note)
}

func testArchivable(t *testing.T, st Store) {
	ctx := context.Background()
	now := t0.Add(100 * 24 * time.Hour)
	done := t0
	due := t0.Add(90 * 24 * time.Hour)
	later := now.Add(time.Hour)

	ready := seedCase(t, st, func(c *models.Case) {
		c.Phase, c.Status, c.CompletedAt, c.ArchiveAfter = models.PhaseCompletion, models.StatusCompleted, &done, &due
	})
	seedCase(t, st, func(c *models.Case) {
		c.Phase, c.Status, c.CompletedAt, c.ArchiveAfter = models.PhaseCompletion, models.StatusCompleted, &done, &later
	})
	seedCase(t, st, func(c *models.Case) {
		c.Phase, c.Status, c.CompletedAt, c.ArchiveAfter, c.Archived =
			models.PhaseCompletion, models.StatusCompleted, &done, &due, true
	})

	var ids []string
	require.NoError(t, st.Tx(ctx, func(r Repo) error {
		var err error
		ids, err = r.ListArchivable(ctx, now)
		return err
	}))
	assert.Contains(t, ids, ready.ID)
	assert.Len(t, ids, 1)
}

func testDocumentCAS(t *testing.T, st Store) {
	ctx := context.Background()
	c := seedCase(t, st, nil)
	d := &models.Document{
		ID: uuid.NewString(), CaseID: c.ID, DocumentType: "passport", FileName: "p.pdf", MimeType: "application/pdf",
		SizeBytes: 10, StorageKey: "k", Status: models.DocPending, UploadedByType: models.UploadedByAdmin,
		UploadedBy: "op", UploadedAt: t0,
	}
	require.NoError(t, st.Tx(ctx, func(r Repo) error { return r.InsertDocument(ctx, d) }))

	stale := *d
	d.Status = models.DocApproved
	require.NoError(t, st.Tx(ctx, func(r Repo) error { return r.UpdateDocument(ctx, d) }))

	stale.Status = models.DocRejected
	err := st.Tx(ctx, func(r Repo) error { return r.UpdateDocument(ctx, &stale) })
	assert.ErrorIs(t, err, ErrConflict)
}

func testRequestByToken(t *testing.T, st Store) {
	ctx := context.Background()
	c := seedCase(t, st, nil)
	req := &models.DocumentRequest{
		ID: uuid.NewString(), CaseID: c.ID, RequestedTypes: []string{"passport", "visa"},
		UploadToken: "ul_" + uuid.NewString(), CreatedBy: "op", CreatedAt: t0,
	}
	require.NoError(t, st.Tx(ctx, func(r Repo) error { return r.InsertDocumentRequest(ctx, req) }))

	var got *models.DocumentRequest
	require.NoError(t, st.Tx(ctx, func(r Repo) error {
		var err error
		got, err = r.FindDocumentRequestByToken(ctx, req.UploadToken)
		return err
	}))
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, []string{"passport", "visa"}, got.RequestedTypes)

	err := st.Tx(ctx, func(r Repo) error {
		_, err := r.FindDocumentRequestByToken(ctx, "ul_missing")
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func testConcurrentCaseWrites(t *testing.T, st Store) {
	ctx := context.Background()
	c := seedCase(t, st, nil)
	targets := []models.CaseStatus{
		models.StatusContacted, models.StatusAwaitingPayment, models.StatusDocumentsPending, models.StatusProcessing,
	}

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := targets[i%len(targets)]
			errs <- st.Tx(ctx, func(r Repo) error {
				cur, err := r.GetCase(ctx, c.ID)
				if err != nil {
					return err
				}
				phase, _ := models.StatusPhase(status)
				cur.Status, cur.Phase = status, phase
				if err := r.UpdateCase(ctx, cur); err != nil {
					return err
				}
				return r.AppendEvent(ctx, &models.TimelineEvent{
					CaseID: c.ID, Kind: models.EventStatusChange, Status: status,
					Timestamp: t0.Add(time.Duration(i) * time.Second), By: "op", Note: fmt.Sprintf("writer %d", i),
				})
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := loadCase(t, st, c.ID)
	assert.Equal(t, c.Version+writers, got.Version)
	phase, ok := models.StatusPhase(got.Status)
	require.True(t, ok)
	assert.Equal(t, phase, got.Phase)

	var events []models.TimelineEvent
	require.NoError(t, st.View(ctx, func(r Repo) error {
		var err error
		events, err = r.ListEvents(ctx, c.ID)
		return err
	}))
	assert.Len(t, events, writers)
}

func testViewDiscardsWrites(t *testing.T, st Store) {
	ctx := context.Background()
	c := seedCase(t, st, nil)
	id := caseID()

	var seen *models.Case
	_ = st.View(ctx, func(r Repo) error {
		var err error
		if seen, err = r.GetCase(ctx, c.ID); err != nil {
			return err
		}
		return r.InsertCase(ctx, &models.Case{
			ID: id, ServiceType: "x", Phase: models.PhaseLead, Status: models.StatusNew, CreatedAt: t0,
		})
	})
	require.NotNil(t, seen)
	assert.Equal(t, c.ID, seen.ID)

	err := st.View(ctx, func(r Repo) error {
		_, err := r.GetCase(ctx, id)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
