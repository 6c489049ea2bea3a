package models

import (
	"time"
)

/* =============================== Enums ================================== */

// Role defines the type of back-office operator.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// LeadStatus defines lifecycle states for an intake lead.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadConverted LeadStatus = "converted"
)

// DocumentStatus defines review states for an uploaded document.
type DocumentStatus string

const (
	DocPending  DocumentStatus = "pending"
	DocApproved DocumentStatus = "approved"
	DocRejected DocumentStatus = "rejected"
)

// UploaderType tells who put a document on the case.
type UploaderType string

const (
	UploadedByAdmin  UploaderType = "admin"
	UploadedByClient UploaderType = "client"
)

// Channel is the medium of a logged client communication.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPhone    Channel = "phone"
	ChannelMeeting  Channel = "meeting"
)

// EventKind classifies timeline entries.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventStatusChange EventKind = "status_change"
	EventReopened     EventKind = "reopened"
	EventArchived     EventKind = "archived"
	EventDocument     EventKind = "document"
	EventNote         EventKind = "note"
	EventConversion   EventKind = "conversion"
)

// ActorClient and ActorSystem are the non-operator values of TimelineEvent.By.
const (
	ActorClient = "client"
	ActorSystem = "system"
)

/* =============================== Entities =============================== */

// Operator is a back-office user acting on cases.
type Operator struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"type:varchar(20);not null"`
	Name         string
	CreatedAt    time.Time
}

// Lead is an intake submission. It is immutable once converted.
type Lead struct {
	ID                string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string     `gorm:"not null" json:"name"`
	Email             string     `gorm:"index" json:"email"`
	Phone             string     `json:"phone"`
	Country           string     `json:"country"`
	ServiceType       string     `gorm:"not null" json:"service_type"`
	EligibilityResult string     `gorm:"type:text" json:"eligibility_result"`
	Message           string     `gorm:"type:text" json:"message"`
	Status            LeadStatus `gorm:"type:varchar(20);default:'new';index" json:"status"`
	ConvertedCaseID   *string    `gorm:"type:varchar(32)" json:"converted_case_id,omitempty"`
	ConvertedAt       *time.Time `json:"converted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Client is the person a case is run for.
type Client struct {
	ID             string `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string `gorm:"not null" json:"name"`
	Email          string `gorm:"index" json:"email"`
	Phone          string `json:"phone"`
	Country        string `json:"country"`
	TotalPaidCents int64  `gorm:"not null;default:0" json:"total_paid_cents"`
	TotalDueCents  int64  `gorm:"not null;default:0" json:"total_due_cents"`
	Currency       string `gorm:"type:varchar(3);not null;default:'BRL'" json:"currency"`

	// Relations
	Payments       []Payment       `json:"payments"`
	Notes          []Note          `json:"notes"`
	Communications []Communication `json:"communications"`
	Cases          []CaseRef       `gorm:"-" json:"cases"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CaseRef is how a client lists its cases without embedding them.
type CaseRef struct {
	ID     string     `json:"id"`
	Phase  Phase      `json:"phase"`
	Status CaseStatus `json:"status"`
}

// Payment is one entry of a client's financial ledger.
type Payment struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    string    `gorm:"type:uuid;not null;index" json:"client_id"`
	CaseID      *string   `gorm:"type:varchar(32);index" json:"case_id,omitempty"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"` // stored in cents to avoid float issues
	Currency    string    `gorm:"type:varchar(3);not null" json:"currency"`
	Method      string    `json:"method"`
	RecordedBy  string    `gorm:"not null" json:"recorded_by"`
	RecordedAt  time.Time `gorm:"not null" json:"recorded_at"`
}

// Communication is a logged contact with a client. Delivery happens elsewhere.
type Communication struct {
	ID       string    `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID string    `gorm:"type:uuid;not null;index" json:"client_id"`
	Channel  Channel   `gorm:"type:varchar(20);not null" json:"channel"`
	Summary  string    `gorm:"type:text" json:"summary"`
	By       string    `gorm:"not null" json:"by"`
	At       time.Time `gorm:"not null" json:"at"`
}

// Note is free text attached to either a case or a client.
type Note struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID    *string   `gorm:"type:varchar(32);index" json:"case_id,omitempty"`
	ClientID  *string   `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	By        string    `gorm:"not null" json:"by"`
	CreatedAt time.Time `json:"created_at"`
}

// Case (a.k.a. application) is the unit moved through the lifecycle.
//
// Phase is always StatusPhase(Status). Token and Password never change once set.
// Archived implies CompletedAt != nil and ArchiveAfter <= now.
type Case struct {
	ID          string     `gorm:"type:varchar(32);primaryKey" json:"id"`
	LeadID      *string    `gorm:"type:uuid;index" json:"lead_id,omitempty"`
	ClientID    *string    `gorm:"type:uuid;index" json:"client_id,omitempty"`
	ServiceType string     `json:"service_type"`
	Package     string     `json:"package"`
	Phase       Phase      `gorm:"not null;index" json:"phase"`
	Status      CaseStatus `gorm:"type:varchar(32);not null;index" json:"status"`

	// Portal credentials
	Token    *string `gorm:"type:varchar(64);uniqueIndex" json:"token,omitempty"`
	Password *string `gorm:"type:varchar(32)" json:"password,omitempty"`

	PaymentAmountCents *int64  `json:"payment_amount_cents,omitempty"`
	PaymentMethod      *string `json:"payment_method,omitempty"`

	// Completion / retention
	CompletedAt  *time.Time `json:"completed_at"`
	ArchiveAfter *time.Time `gorm:"index" json:"archive_after"`
	Archived     bool       `gorm:"not null;default:false;index" json:"archived"`

	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Documents        []Document        `json:"documents"`
	Notes            []Note            `json:"notes"`
	Timeline         []TimelineEvent   `json:"timeline"`
	DocumentRequests []DocumentRequest `json:"document_requests"`
}

// TimelineEvent is an append-only audit record.
type TimelineEvent struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CaseID    string     `gorm:"type:varchar(32);not null;index:idx_timeline_case_ts" json:"case_id"`
	Kind      EventKind  `gorm:"type:varchar(20);not null" json:"kind"`
	Status    CaseStatus `gorm:"type:varchar(32);not null" json:"status"`
	Timestamp time.Time  `gorm:"not null;index:idx_timeline_case_ts" json:"timestamp"`
	By        string     `gorm:"not null" json:"by"` // operator identity, "client" or "system"
	Note      string     `gorm:"type:text" json:"note"`
}

// Document is uploaded file metadata; bytes live in external storage under StorageKey.
type Document struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID          string         `gorm:"type:varchar(32);not null;index" json:"case_id"`
	ClientID        *string        `gorm:"type:uuid;index" json:"client_id,omitempty"`
	RequestID       *string        `gorm:"type:uuid;index" json:"request_id,omitempty"`
	DocumentType    string         `json:"document_type"`
	FileName        string         `gorm:"not null" json:"file_name"`
	MimeType        string         `gorm:"not null" json:"mime_type"`
	SizeBytes       int64          `gorm:"not null" json:"size_bytes"`
	StorageKey      string         `gorm:"not null" json:"storage_key"`
	Status          DocumentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedBy      *string        `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	RejectionReason *string        `gorm:"type:text" json:"rejection_reason,omitempty"`
	UploadedByType  UploaderType   `gorm:"type:varchar(20);not null" json:"uploaded_by_type"`
	UploadedBy      string         `gorm:"not null" json:"uploaded_by"`
	UploadedAt      time.Time      `gorm:"not null" json:"uploaded_at"`
	Version         int            `gorm:"not null;default:0" json:"version"`
}

// DocumentRequest solicits a batch of document types from a client through an upload link.
type DocumentRequest struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID         string     `gorm:"type:varchar(32);not null;index" json:"case_id"`
	ClientID       *string    `gorm:"type:uuid;index" json:"client_id,omitempty"`
	RequestedTypes []string   `gorm:"serializer:json;type:text;not null" json:"requested_types"`
	Message        string     `gorm:"type:text" json:"message"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	UploadToken    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"upload_token"`
	CreatedBy      string     `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// All lists every persisted entity, in migration order.
func All() []any {
	return []any{
		&Operator{}, &Lead{}, &Client{}, &Payment{}, &Communication{},
		&Case{}, &TimelineEvent{}, &Note{}, &Document{}, &DocumentRequest{},
	}
}
