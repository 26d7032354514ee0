package service

import (
	"context"

	"backend/internal/model"
	"backend/internal/repository"
)

type AuditLogResponse struct {
	ID          string `json:"id"`
	PerformedBy string `json:"performed_by"`
	UserID      string `json:"user_id"`
	Action      string `json:"action"`
	TargetID    string `json:"target_id"`
	Details     string `json:"details"`
	CreatedAt   string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs retrieves paginated audit records, most recent first
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, mapAuditLogToResponse(&l))
	}
	return res, total, nil
}

func mapAuditLogToResponse(l *model.AuditLog) AuditLogResponse {
	userID := ""
	if l.UserID != nil {
		userID = l.UserID.String()
	}
	return AuditLogResponse{
		ID:          l.ID.String(),
		PerformedBy: l.PerformedBy,
		UserID:      userID,
		Action:      l.Action,
		TargetID:    l.TargetID,
		Details:     l.Details,
		CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
