package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/repository"
)

// AuditService writes immutable audit trail entries.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Write stores a single immutable audit record through the caller's
// query handle so it commits or rolls back with the surrounding unit.
func (s *AuditService) Write(ctx context.Context, q repository.Querier, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string) error {
	if err := q.InsertAuditLog(ctx, repository.AuditLogParams{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
