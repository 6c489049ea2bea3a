// Package store persists leads, clients, cases and their satellites.
//
// Every read-modify-write goes through Store.Tx so that it is all-or-nothing. Case and
// document updates are compare-and-swap on their Version column: an update built from a
// stale read fails with ErrConflict instead of overwriting a concurrent change.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

// Sentinel errors for infrastructure facts. Wrapped with the entity id by implementations.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store runs fn in a transaction. If fn returns an error nothing it wrote is kept.
type Store interface {
	Tx(ctx context.Context, fn func(r Repo) error) error
	// View is for reads. Get* take no row locks and nothing fn writes is kept.
	View(ctx context.Context, fn func(r Repo) error) error
}

// Repo is the set of operations available inside a transaction.
// Get* return bare rows without relations.
type Repo interface {
	InsertOperator(ctx context.Context, o *models.Operator) error
	FindOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
	GetOperator(ctx context.Context, id string) (*models.Operator, error)
	CountOperators(ctx context.Context) (int64, error)

	InsertLead(ctx context.Context, l *models.Lead) error
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	UpdateLead(ctx context.Context, l *models.Lead) error
	ListLeads(ctx context.Context, f LeadFilter) ([]models.Lead, int64, error)

	InsertClient(ctx context.Context, c *models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	UpdateClient(ctx context.Context, c *models.Client) error
	InsertPayment(ctx context.Context, p *models.Payment) error
	ListPayments(ctx context.Context, clientID string) ([]models.Payment, error)
	InsertCommunication(ctx context.Context, c *models.Communication) error
	ListCommunications(ctx context.Context, clientID string) ([]models.Communication, error)

	InsertCase(ctx context.Context, c *models.Case) error
	// GetCase locks the row for the rest of a Tx where the backend supports it.
	GetCase(ctx context.Context, id string) (*models.Case, error)
	// UpdateCase writes scalar columns if c.Version still matches, then bumps c.Version.
	UpdateCase(ctx context.Context, c *models.Case) error
	ListCases(ctx context.Context, f CaseFilter) ([]models.Case, int64, error)
	ListCaseRefs(ctx context.Context, clientID string) ([]models.CaseRef, error)
	// ListArchivable returns ids of unarchived completed cases whose archive_after <= now.
	ListArchivable(ctx context.Context, now time.Time) ([]string, error)
	FindCaseByToken(ctx context.Context, token string) (*models.Case, error)

	// AppendEvent is the only timeline write; events are never updated or deleted.
	AppendEvent(ctx context.Context, e *models.TimelineEvent) error
	// ListEvents returns a case's timeline ordered by timestamp, then insertion.
	ListEvents(ctx context.Context, caseID string) ([]models.TimelineEvent, error)

	InsertNote(ctx context.Context, n *models.Note) error
	ListNotes(ctx context.Context, f NoteFilter) ([]models.Note, error)

	InsertDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// UpdateDocument is compare-and-swap on d.Version, like UpdateCase.
	UpdateDocument(ctx context.Context, d *models.Document) error
	ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, error)

	InsertDocumentRequest(ctx context.Context, r *models.DocumentRequest) error
	GetDocumentRequest(ctx context.Context, id string) (*models.DocumentRequest, error)
	FindDocumentRequestByToken(ctx context.Context, token string) (*models.DocumentRequest, error)
	ListDocumentRequests(ctx context.Context, caseID string) ([]models.DocumentRequest, error)
}

// CaseFilter selects cases. Nil fields do not filter. PageSize 0 returns everything.
type CaseFilter struct {
	Phase    *models.Phase
	Status   *models.CaseStatus
	ClientID *string
	Archived *bool
	Page     int
	PageSize int
}

type LeadFilter struct {
	Status   *models.LeadStatus
	Page     int
	PageSize int
}

// NoteFilter selects notes of one case or one client.
type NoteFilter struct {
	CaseID   string
	ClientID string
}

type DocumentFilter struct {
	CaseID    string
	RequestID string
	Status    *models.DocumentStatus
}

func offset(page, size int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * size
}
