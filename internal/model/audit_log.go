package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction is the kind of catalog mutation recorded in an audit log.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

const (
	EntityCategory = "category"
	EntityProduct  = "product"
)

// AuditLog records a single catalog mutation together with the caller that made it.
// Entries are written in the same transaction as the mutation.
type AuditLog struct {
	ID         uuid.UUID   `json:"id" gorm:"type:char(36);primaryKey"`
	EntityType string      `json:"entity_type" gorm:"size:20;not null;index"`
	EntityID   uint        `json:"entity_id" gorm:"not null;index"`
	Action     AuditAction `json:"action" gorm:"size:20;not null"`
	ActorEmail string      `json:"actor_email" gorm:"size:255;not null;index"`
	Before     string      `json:"before,omitempty" gorm:"type:text"`
	After      string      `json:"after,omitempty" gorm:"type:text"`
	CreatedAt  time.Time   `json:"created_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
