// Package lifecycle is the case/application lifecycle engine: phase and status
// transitions, the append-only timeline, portal credential issuance, the document
// workflow, lead conversion and retention-based archival.
//
// Each operation is one store transaction. Validation happens before any write and a
// failed operation leaves no trace.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

// Issuer mints identifiers and credentials. Portal and upload tokens are separate namespaces.
type Issuer interface {
	NewCaseID() (string, error)
	NewPortalToken() (string, error)
	NewUploadToken() (string, error)
	NewPassword() (string, error)
}

// Recorder receives engine metrics. Calls happen after commit.
type Recorder interface {
	StatusChanged(status models.CaseStatus)
	CredentialsIssued()
	CasesArchived(n int)
	Conflict(operation string)
}

type nopRecorder struct{}

func (nopRecorder) StatusChanged(models.CaseStatus) {}
func (nopRecorder) CredentialsIssued()              {}
func (nopRecorder) CasesArchived(int)               {}
func (nopRecorder) Conflict(string)                 {}

type Engine struct {
	store   store.Store
	issuer  Issuer
	archive ArchiveScheduler
	log     *zap.Logger
	metrics Recorder
	now     func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now; tests use it to pin timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// WithRetention sets how long a completed case stays active before it may be archived.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) { e.archive.Retention = d }
}

func WithRecorder(r Recorder) Option { return func(e *Engine) { e.metrics = r } }

func New(st store.Store, iss Issuer, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		issuer:  iss,
		archive: ArchiveScheduler{Retention: DefaultRetention},
		log:     zap.NewNop(),
		metrics: nopRecorder{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retention reports the configured retention window.
func (e *Engine) Retention() time.Duration { return e.archive.Retention }

// tx runs fn in one store transaction and retries once if a concurrent writer won.
func (e *Engine) tx(ctx context.Context, op string, fn func(r store.Repo) error) error {
	err := e.store.Tx(ctx, fn)
	if errors.Is(err, store.ErrConflict) {
		e.metrics.Conflict(op)
		e.log.Warn("write conflict, retrying", zap.String("operation", op), zap.Error(err))
		err = e.store.Tx(ctx, fn)
		if errors.Is(err, store.ErrConflict) {
			e.metrics.Conflict(op)
		}
	}
	return err
}

// clock returns the current time truncated to microseconds, the precision Postgres keeps.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func newID() string { return uuid.NewString() }

func ptr[T any](v T) *T { return &v }
