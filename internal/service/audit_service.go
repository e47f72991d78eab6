package service

import (
	"context"
	"encoding/json"
	"fmt"

	errs "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditService exposes the catalog audit trail.
type AuditService interface {
	List(ctx context.Context, entityType string, limit int) ([]model.AuditLog, error)
}

type auditService struct {
	logs repository.AuditLogRepository
}

// NewAuditService creates a new audit service.
func NewAuditService(logs repository.AuditLogRepository) AuditService {
	return &auditService{logs: logs}
}

// List returns the newest audit entries first. A limit of zero means the default page size.
func (s *auditService) List(ctx context.Context, entityType string, limit int) ([]model.AuditLog, error) {
	switch entityType {
	case "", model.EntityCategory, model.EntityProduct:
	default:
		return nil, errs.Validation("entity_type must be %q or %q", model.EntityCategory, model.EntityProduct)
	}
	if limit < 0 {
		return nil, errs.Validation("limit must not be negative")
	}
	if limit == 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	logs, err := s.logs.List(ctx, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// recordAudit writes an audit entry through repos so it commits with the mutation.
func recordAudit(ctx context.Context, repos *repository.Repositories, entityType string, entityID uint, action model.AuditAction, actor string, before, after any) error {
	entry := &model.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorEmail: actor,
		Before:     snapshot(before),
		After:      snapshot(after),
	}
	if err := repos.AuditLogs.Create(ctx, entry); err != nil {
		return fmt.Errorf("record audit log: %w", err)
	}
	return nil
}

func snapshot(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
