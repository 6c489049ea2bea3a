package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

// MemoryStore keeps everything in process. Transactions are serialized; each one works on
// a copy of the state that replaces the committed state only when fn succeeds.
// Used by tests and by STORE=memory for local development.
type MemoryStore struct {
	mu sync.RWMutex
	st *memState
}

type memState struct {
	operators   map[string]models.Operator
	leads       map[string]models.Lead
	clients     map[string]models.Client
	payments    []models.Payment
	comms       []models.Communication
	cases       map[string]models.Case
	events      []models.TimelineEvent
	nextEventID uint64
	notes       []models.Note
	docs        map[string]models.Document
	requests    map[string]models.DocumentRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		operators: map[string]models.Operator{},
		leads:     map[string]models.Lead{},
		clients:   map[string]models.Client{},
		cases:     map[string]models.Case{},
		docs:      map[string]models.Document{},
		requests:  map[string]models.DocumentRequest{},
	}}
}

func (s *MemoryStore) Tx(ctx context.Context, fn func(r Repo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&memRepo{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// View runs fn against a copy of the committed state and throws the copy away.
func (s *MemoryStore) View(ctx context.Context, fn func(r Repo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	return fn(&memRepo{st: work})
}

func (m *memState) clone() *memState {
	out := &memState{
		operators:   make(map[string]models.Operator, len(m.operators)),
		leads:       make(map[string]models.Lead, len(m.leads)),
		clients:     make(map[string]models.Client, len(m.clients)),
		payments:    slices.Clone(m.payments),
		comms:       slices.Clone(m.comms),
		cases:       make(map[string]models.Case, len(m.cases)),
		events:      slices.Clone(m.events),
		nextEventID: m.nextEventID,
		notes:       slices.Clone(m.notes),
		docs:        make(map[string]models.Document, len(m.docs)),
		requests:    make(map[string]models.DocumentRequest, len(m.requests)),
	}
	for k, v := range m.operators {
		out.operators[k] = v
	}
	for k, v := range m.leads {
		out.leads[k] = v
	}
	for k, v := range m.clients {
		out.clients[k] = v
	}
	for k, v := range m.cases {
		out.cases[k] = v
	}
	for k, v := range m.docs {
		out.docs[k] = v
	}
	for k, v := range m.requests {
		v.RequestedTypes = slices.Clone(v.RequestedTypes)
		out.requests[k] = v
	}
	return out
}

type memRepo struct{ st *memState }

/* ------------------------------ operators ------------------------------ */

func (r *memRepo) InsertOperator(_ context.Context, o *models.Operator) error {
	for _, x := range r.st.operators {
		if strings.EqualFold(x.Email, o.Email) {
			return fmt.Errorf("operator %s: %w", o.Email, ErrConflict)
		}
	}
	r.st.operators[o.ID] = *o
	return nil
}

func (r *memRepo) FindOperatorByEmail(_ context.Context, email string) (*models.Operator, error) {
	for _, o := range r.st.operators {
		if strings.EqualFold(o.Email, email) {
			return &o, nil
		}
	}
	return nil, fmt.Errorf("operator %s: %w", email, ErrNotFound)
}

func (r *memRepo) GetOperator(_ context.Context, id string) (*models.Operator, error) {
	o, ok := r.st.operators[id]
	if !ok {
		return nil, fmt.Errorf("operator %s: %w", id, ErrNotFound)
	}
	return &o, nil
}

func (r *memRepo) CountOperators(context.Context) (int64, error) {
	return int64(len(r.st.operators)), nil
}

/* -------------------------------- leads -------------------------------- */

func (r *memRepo) InsertLead(_ context.Context, l *models.Lead) error {
	if _, dup := r.st.leads[l.ID]; dup {
		return fmt.Errorf("lead %s: %w", l.ID, ErrConflict)
	}
	r.st.leads[l.ID] = *l
	return nil
}

func (r *memRepo) GetLead(_ context.Context, id string) (*models.Lead, error) {
	l, ok := r.st.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	return &l, nil
}

func (r *memRepo) UpdateLead(_ context.Context, l *models.Lead) error {
	if _, ok := r.st.leads[l.ID]; !ok {
		return fmt.Errorf("lead %s: %w", l.ID, ErrNotFound)
	}
	r.st.leads[l.ID] = *l
	return nil
}

func (r *memRepo) ListLeads(_ context.Context, f LeadFilter) ([]models.Lead, int64, error) {
	out := make([]models.Lead, 0, len(r.st.leads))
	for _, l := range r.st.leads {
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	total := int64(len(out))
	return paginate(out, f.Page, f.PageSize), total, nil
}

/* ------------------------------- clients ------------------------------- */

func (r *memRepo) InsertClient(_ context.Context, c *models.Client) error {
	if _, dup := r.st.clients[c.ID]; dup {
		return fmt.Errorf("client %s: %w", c.ID, ErrConflict)
	}
	r.st.clients[c.ID] = bareClient(*c)
	return nil
}

func (r *memRepo) GetClient(_ context.Context, id string) (*models.Client, error) {
	c, ok := r.st.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (r *memRepo) UpdateClient(_ context.Context, c *models.Client) error {
	if _, ok := r.st.clients[c.ID]; !ok {
		return fmt.Errorf("client %s: %w", c.ID, ErrNotFound)
	}
	r.st.clients[c.ID] = bareClient(*c)
	return nil
}

func (r *memRepo) InsertPayment(_ context.Context, p *models.Payment) error {
	r.st.payments = append(r.st.payments, *p)
	return nil
}

func (r *memRepo) ListPayments(_ context.Context, clientID string) ([]models.Payment, error) {
	out := []models.Payment{}
	for _, p := range r.st.payments {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepo) InsertCommunication(_ context.Context, c *models.Communication) error {
	r.st.comms = append(r.st.comms, *c)
	return nil
}

func (r *memRepo) ListCommunications(_ context.Context, clientID string) ([]models.Communication, error) {
	out := []models.Communication{}
	for _, c := range r.st.comms {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

/* -------------------------------- cases -------------------------------- */

func (r *memRepo) InsertCase(_ context.Context, c *models.Case) error {
	if _, dup := r.st.cases[c.ID]; dup {
		return fmt.Errorf("case %s: %w", c.ID, ErrConflict)
	}
	if c.Token != nil {
		if _, err := r.FindCaseByToken(context.Background(), *c.Token); err == nil {
			return fmt.Errorf("case token: %w", ErrConflict)
		}
	}
	r.st.cases[c.ID] = bareCase(*c)
	return nil
}

func (r *memRepo) GetCase(_ context.Context, id string) (*models.Case, error) {
	c, ok := r.st.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (r *memRepo) UpdateCase(_ context.Context, c *models.Case) error {
	cur, ok := r.st.cases[c.ID]
	if !ok {
		return fmt.Errorf("case %s: %w", c.ID, ErrNotFound)
	}
	if cur.Version != c.Version {
		return fmt.Errorf("case %s version %d: %w", c.ID, c.Version, ErrConflict)
	}
	if c.Token != nil && (cur.Token == nil || *cur.Token != *c.Token) {
		for id, other := range r.st.cases {
			if id != c.ID && other.Token != nil && *other.Token == *c.Token {
				return fmt.Errorf("case token: %w", ErrConflict)
			}
		}
	}
	c.Version++
	r.st.cases[c.ID] = bareCase(*c)
	return nil
}

func (r *memRepo) ListCases(_ context.Context, f CaseFilter) ([]models.Case, int64, error) {
	out := make([]models.Case, 0, len(r.st.cases))
	for _, c := range r.st.cases {
		if f.Phase != nil && c.Phase != *f.Phase {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.ClientID != nil && (c.ClientID == nil || *c.ClientID != *f.ClientID) {
			continue
		}
		if f.Archived != nil && c.Archived != *f.Archived {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	total := int64(len(out))
	return paginate(out, f.Page, f.PageSize), total, nil
}

func (r *memRepo) ListCaseRefs(ctx context.Context, clientID string) ([]models.CaseRef, error) {
	list, _, _ := r.ListCases(ctx, CaseFilter{ClientID: &clientID})
	out := make([]models.CaseRef, 0, len(list))
	for _, c := range list {
		out = append(out, models.CaseRef{ID: c.ID, Phase: c.Phase, Status: c.Status})
	}
	return out, nil
}

func (r *memRepo) ListArchivable(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for id, c := range r.st.cases {
		if c.Archived || c.CompletedAt == nil || c.ArchiveAfter == nil {
			continue
		}
		if !c.ArchiveAfter.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memRepo) FindCaseByToken(_ context.Context, token string) (*models.Case, error) {
	for _, c := range r.st.cases {
		if c.Token != nil && *c.Token == token {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("case by token: %w", ErrNotFound)
}

/* ------------------------------- timeline ------------------------------ */

func (r *memRepo) AppendEvent(_ context.Context, e *models.TimelineEvent) error {
	if _, ok := r.st.cases[e.CaseID]; !ok {
		return fmt.Errorf("case %s: %w", e.CaseID, ErrNotFound)
	}
	r.st.nextEventID++
	e.ID = r.st.nextEventID
	r.st.events = append(r.st.events, *e)
	return nil
}

func (r *memRepo) ListEvents(_ context.Context, caseID string) ([]models.TimelineEvent, error) {
	out := []models.TimelineEvent{}
	for _, e := range r.st.events {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

/* -------------------------------- notes -------------------------------- */

func (r *memRepo) InsertNote(_ context.Context, n *models.Note) error {
	r.st.notes = append(r.st.notes, *n)
	return nil
}

func (r *memRepo) ListNotes(_ context.Context, f NoteFilter) ([]models.Note, error) {
	out := []models.Note{}
	for _, n := range r.st.notes {
		if f.CaseID != "" && (n.CaseID == nil || *n.CaseID != f.CaseID) {
			continue
		}
		if f.ClientID != "" && (n.ClientID == nil || *n.ClientID != f.ClientID) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

/* ------------------------------ documents ------------------------------ */

func (r *memRepo) InsertDocument(_ context.Context, d *models.Document) error {
	if _, ok := r.st.cases[d.CaseID]; !ok {
		return fmt.Errorf("case %s: %w", d.CaseID, ErrNotFound)
	}
	r.st.docs[d.ID] = *d
	return nil
}

func (r *memRepo) GetDocument(_ context.Context, id string) (*models.Document, error) {
	d, ok := r.st.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return &d, nil
}

func (r *memRepo) UpdateDocument(_ context.Context, d *models.Document) error {
	cur, ok := r.st.docs[d.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", d.ID, ErrNotFound)
	}
	if cur.Version != d.Version {
		return fmt.Errorf("document %s version %d: %w", d.ID, d.Version, ErrConflict)
	}
	d.Version++
	r.st.docs[d.ID] = *d
	return nil
}

func (r *memRepo) ListDocuments(_ context.Context, f DocumentFilter) ([]models.Document, error) {
	out := []models.Document{}
	for _, d := range r.st.docs {
		if f.CaseID != "" && d.CaseID != f.CaseID {
			continue
		}
		if f.RequestID != "" && (d.RequestID == nil || *d.RequestID != f.RequestID) {
			continue
		}
		if f.Status != nil && d.Status != *f.Status {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

/* -------------------------- document requests -------------------------- */

func (r *memRepo) InsertDocumentRequest(_ context.Context, req *models.DocumentRequest) error {
	for _, x := range r.st.requests {
		if x.UploadToken == req.UploadToken {
			return fmt.Errorf("upload token: %w", ErrConflict)
		}
	}
	cp := *req
	cp.RequestedTypes = slices.Clone(req.RequestedTypes)
	r.st.requests[req.ID] = cp
	return nil
}

func (r *memRepo) GetDocumentRequest(_ context.Context, id string) (*models.DocumentRequest, error) {
	req, ok := r.st.requests[id]
	if !ok {
		return nil, fmt.Errorf("document request %s: %w", id, ErrNotFound)
	}
	req.RequestedTypes = slices.Clone(req.RequestedTypes)
	return &req, nil
}

func (r *memRepo) FindDocumentRequestByToken(_ context.Context, token string) (*models.DocumentRequest, error) {
	for _, req := range r.st.requests {
		if req.UploadToken == token {
			req.RequestedTypes = slices.Clone(req.RequestedTypes)
			return &req, nil
		}
	}
	return nil, fmt.Errorf("document request by token: %w", ErrNotFound)
}

func (r *memRepo) ListDocumentRequests(_ context.Context, caseID string) ([]models.DocumentRequest, error) {
	out := []models.DocumentRequest{}
	for _, req := range r.st.requests {
		if req.CaseID == caseID {
			req.RequestedTypes = slices.Clone(req.RequestedTypes)
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

/* ------------------------------- helpers ------------------------------- */

func bareCase(c models.Case) models.Case {
	c.Documents, c.Notes, c.Timeline, c.DocumentRequests = nil, nil, nil, nil
	return c
}

func bareClient(c models.Client) models.Client {
	c.Payments, c.Notes, c.Communications, c.Cases = nil, nil, nil, nil
	return c
}

func paginate[T any](list []T, page, size int) []T {
	if size <= 0 {
		return list
	}
	from := offset(page, size)
	if from >= len(list) {
		return []T{}
	}
	to := min(from+size, len(list))
	return list[from:to]
}
