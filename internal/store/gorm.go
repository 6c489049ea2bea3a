package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Tx(ctx context.Context, fn func(r Repo) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepo{db: tx, lock: true})
	})
}

// View runs fn in a read-only transaction. Rows are read without FOR UPDATE, so it never
// waits on a writer holding a case.
func (s *GormStore) View(ctx context.Context, fn func(r Repo) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepo{db: tx})
	}, &sql.TxOptions{ReadOnly: true})
}

type gormRepo struct {
	db   *gorm.DB
	lock bool
}

// forUpdate locks the selected row until commit when the repo belongs to Tx.
func (r *gormRepo) forUpdate() *gorm.DB {
	if !r.lock {
		return r.db
	}
	return r.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// notFound maps gorm's record-not-found to ErrNotFound, wrapping everything else.
func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

func insertErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "SQLSTATE 23505") {
		return fmt.Errorf("insert %s: %w", what, ErrConflict)
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

/* ------------------------------ operators ------------------------------ */

func (r *gormRepo) InsertOperator(_ context.Context, o *models.Operator) error {
	return insertErr(r.db.Create(o).Error, "operator")
}

func (r *gormRepo) FindOperatorByEmail(_ context.Context, email string) (*models.Operator, error) {
	var o models.Operator
	if err := r.db.Where("lower(email) = lower(?)", email).First(&o).Error; err != nil {
		return nil, notFound(err, "operator", email)
	}
	return &o, nil
}

func (r *gormRepo) GetOperator(_ context.Context, id string) (*models.Operator, error) {
	var o models.Operator
	if err := r.db.First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "operator", id)
	}
	return &o, nil
}

func (r *gormRepo) CountOperators(context.Context) (int64, error) {
	var n int64
	err := r.db.Model(&models.Operator{}).Count(&n).Error
	return n, err
}

/* -------------------------------- leads -------------------------------- */

func (r *gormRepo) InsertLead(_ context.Context, l *models.Lead) error {
	return insertErr(r.db.Create(l).Error, "lead")
}

func (r *gormRepo) GetLead(_ context.Context, id string) (*models.Lead, error) {
	var l models.Lead
	if err := r.forUpdate().First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "lead", id)
	}
	return &l, nil
}

func (r *gormRepo) UpdateLead(_ context.Context, l *models.Lead) error {
	res := r.db.Model(&models.Lead{}).Where("id = ?", l.ID).Updates(map[string]any{
		"status":            l.Status,
		"converted_case_id": l.ConvertedCaseID,
		"converted_at":      l.ConvertedAt,
		"updated_at":        l.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update lead %s: %w", l.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lead %s: %w", l.ID, ErrNotFound)
	}
	return nil
}

func (r *gormRepo) ListLeads(_ context.Context, f LeadFilter) ([]models.Lead, int64, error) {
	q := r.db.Model(&models.Lead{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Order("created_at DESC, id")
	if f.PageSize > 0 {
		q = q.Offset(offset(f.Page, f.PageSize)).Limit(f.PageSize)
	}
	list := []models.Lead{}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

/* ------------------------------- clients ------------------------------- */

func (r *gormRepo) InsertClient(_ context.Context, c *models.Client) error {
	return insertErr(r.db.Omit(clause.Associations).Create(c).Error, "client")
}

func (r *gormRepo) GetClient(_ context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := r.forUpdate().First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "client", id)
	}
	return &c, nil
}

func (r *gormRepo) UpdateClient(_ context.Context, c *models.Client) error {
	res := r.db.Model(&models.Client{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":             c.Name,
		"email":            c.Email,
		"phone":            c.Phone,
		"country":          c.Country,
		"total_paid_cents": c.TotalPaidCents,
		"total_due_cents":  c.TotalDueCents,
		"currency":         c.Currency,
		"updated_at":       c.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update client %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("client %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (r *gormRepo) InsertPayment(_ context.Context, p *models.Payment) error {
	return insertErr(r.db.Create(p).Error, "payment")
}

func (r *gormRepo) ListPayments(_ context.Context, clientID string) ([]models.Payment, error) {
	out := []models.Payment{}
	err := r.db.Where("client_id = ?", clientID).Order("recorded_at ASC").Find(&out).Error
	return out, err
}

func (r *gormRepo) InsertCommunication(_ context.Context, c *models.Communication) error {
	return insertErr(r.db.Create(c).Error, "communication")
}

func (r *gormRepo) ListCommunications(_ context.Context, clientID string) ([]models.Communication, error) {
	out := []models.Communication{}
	err := r.db.Where("client_id = ?", clientID).Order("at ASC").Find(&out).Error
	return out, err
}

/* -------------------------------- cases -------------------------------- */

func (r *gormRepo) InsertCase(_ context.Context, c *models.Case) error {
	return insertErr(r.db.Omit(clause.Associations).Create(c).Error, "case")
}

func (r *gormRepo) GetCase(_ context.Context, id string) (*models.Case, error) {
	var c models.Case
	// Lock the row so concurrent writers on the same case queue behind this transaction.
	if err := r.forUpdate().First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "case", id)
	}
	return &c, nil
}

func (r *gormRepo) UpdateCase(_ context.Context, c *models.Case) error {
	res := r.db.Model(&models.Case{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]any{
			"client_id":            c.ClientID,
			"service_type":         c.ServiceType,
			"package":              c.Package,
			"phase":                c.Phase,
			"status":               c.Status,
			"token":                c.Token,
			"password":             c.Password,
			"payment_amount_cents": c.PaymentAmountCents,
			"payment_method":       c.PaymentMethod,
			"completed_at":         c.CompletedAt,
			"archive_after":        c.ArchiveAfter,
			"archived":             c.Archived,
			"version":              c.Version + 1,
			"updated_at":           c.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update case %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("case %s version %d: %w", c.ID, c.Version, ErrConflict)
	}
	c.Version++
	return nil
}

func (r *gormRepo) ListCases(_ context.Context, f CaseFilter) ([]models.Case, int64, error) {
	q := r.db.Model(&models.Case{})
	if f.Phase != nil {
		q = q.Where("phase = ?", *f.Phase)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.Archived != nil {
		q = q.Where("archived = ?", *f.Archived)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Order("created_at DESC, id")
	if f.PageSize > 0 {
		q = q.Offset(offset(f.Page, f.PageSize)).Limit(f.PageSize)
	}
	list := []models.Case{}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *gormRepo) ListCaseRefs(_ context.Context, clientID string) ([]models.CaseRef, error) {
	out := []models.CaseRef{}
	err := r.db.Model(&models.Case{}).
		Select("id, phase, status").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Scan(&out).Error
	return out, err
}

func (r *gormRepo) ListArchivable(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.Case{}).
		Where("archived = ? AND completed_at IS NOT NULL AND archive_after <= ?", false, now).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *gormRepo) FindCaseByToken(_ context.Context, token string) (*models.Case, error) {
	var c models.Case
	if err := r.db.First(&c, "token = ?", token).Error; err != nil {
		return nil, notFound(err, "case by token", "")
	}
	return &c, nil
}

/* ------------------------------- timeline ------------------------------ */

func (r *gormRepo) AppendEvent(_ context.Context, e *models.TimelineEvent) error {
	return insertErr(r.db.Create(e).Error, "timeline event")
}

func (r *gormRepo) ListEvents(_ context.Context, caseID string) ([]models.TimelineEvent, error) {
	out := []models.TimelineEvent{}
	err := r.db.Where("case_id = ?", caseID).Order("timestamp ASC, id ASC").Find(&out).Error
	return out, err
}

/* -------------------------------- notes -------------------------------- */

func (r *gormRepo) InsertNote(_ context.Context, n *models.Note) error {
	return insertErr(r.db.Create(n).Error, "note")
}

func (r *gormRepo) ListNotes(_ context.Context, f NoteFilter) ([]models.Note, error) {
	q := r.db.Model(&models.Note{})
	if f.CaseID != "" {
		q = q.Where("case_id = ?", f.CaseID)
	}
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	out := []models.Note{}
	err := q.Order("created_at ASC").Find(&out).Error
	return out, err
}

/* ------------------------------ documents ------------------------------ */

func (r *gormRepo) InsertDocument(_ context.Context, d *models.Document) error {
	return insertErr(r.db.Create(d).Error, "document")
}

func (r *gormRepo) GetDocument(_ context.Context, id string) (*models.Document, error) {
	var d models.Document
	if err := r.forUpdate().First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "document", id)
	}
	return &d, nil
}

func (r *gormRepo) UpdateDocument(_ context.Context, d *models.Document) error {
	res := r.db.Model(&models.Document{}).
		Where("id = ? AND version = ?", d.ID, d.Version).
		Updates(map[string]any{
			"status":           d.Status,
			"reviewed_by":      d.ReviewedBy,
			"reviewed_at":      d.ReviewedAt,
			"rejection_reason": d.RejectionReason,
			"version":          d.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update document %s: %w", d.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %s version %d: %w", d.ID, d.Version, ErrConflict)
	}
	d.Version++
	return nil
}

func (r *gormRepo) ListDocuments(_ context.Context, f DocumentFilter) ([]models.Document, error) {
	q := r.db.Model(&models.Document{})
	if f.CaseID != "" {
		q = q.Where("case_id = ?", f.CaseID)
	}
	if f.RequestID != "" {
		q = q.Where("request_id = ?", f.RequestID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	out := []models.Document{}
	err := q.Order("uploaded_at ASC, id").Find(&out).Error
	return out, err
}

/* -------------------------- document requests -------------------------- */

func (r *gormRepo) InsertDocumentRequest(_ context.Context, req *models.DocumentRequest) error {
	return insertErr(r.db.Create(req).Error, "document request")
}

func (r *gormRepo) GetDocumentRequest(_ context.Context, id string) (*models.DocumentRequest, error) {
	var req models.DocumentRequest
	if err := r.db.First(&req, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "document request", id)
	}
	return &req, nil
}

func (r *gormRepo) FindDocumentRequestByToken(_ context.Context, token string) (*models.DocumentRequest, error) {
	var req models.DocumentRequest
	if err := r.db.First(&req, "upload_token = ?", token).Error; err != nil {
		return nil, notFound(err, "document request by token", "")
	}
	return &req, nil
}

func (r *gormRepo) ListDocumentRequests(_ context.Context, caseID string) ([]models.DocumentRequest, error) {
	out := []models.DocumentRequest{}
	err := r.db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&out).Error
	return out, err
}
