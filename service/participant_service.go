// service/participant_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/trackmeet/api/audit"
	"github.com/trackmeet/api/bus"
	"github.com/trackmeet/api/cache"
	"github.com/trackmeet/api/dao"
	meet_errors "github.com/trackmeet/api/errors"
	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
	"github.com/trackmeet/api/util"
)

// IParticipantService defines the interface for participant operations
type IParticipantService interface {
	ListParticipants(ctx context.Context, page, limit int) (*model.ParticipantPage, error)
	GetParticipant(ctx context.Context, participantID string) (*model.Participant, error)
	GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error)
	CreateParticipant(ctx context.Context, input model.NewParticipant, actorID string) (*model.Participant, error)
	UpdateParticipant(ctx context.Context, participantID string, patch model.ParticipantPatch, actorID string) (*model.Participant, error)
	DeleteParticipant(ctx context.Context, participantID string, actorID string) (bool, error)
}

// CacheTTLs holds the per-entity-class cache lifetimes.
type CacheTTLs struct {
	List  time.Duration
	Point time.Duration
}

func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{List: 300 * time.Second, Point: 600 * time.Second}
}

// ParticipantService orchestrates the store, the cache layer and the
// notification bus. Reads go cache-aside; every successful write mutates the
// store first, then invalidates the affected cache keys, then publishes the
// domain event. A publish failure after the mutation committed is surfaced
// as *meet_errors.BroadcastError together with the mutated record — the data
// change is never rolled back.
type ParticipantService struct {
	participantDAO dao.ParticipantDAO
	cache          cache.Cache
	broadcaster    bus.Broadcaster
	validationUtil *util.ValidationUtil
	auditSvc       audit.Service
	ttls           CacheTTLs
	group          singleflight.Group
}

var _ IParticipantService = (*ParticipantService)(nil)

// NewParticipantService creates a new instance of ParticipantService. All
// collaborators are injected; auditSvc may be nil to disable auditing.
func NewParticipantService(
	participantDAO dao.ParticipantDAO,
	cacheLayer cache.Cache,
	broadcaster bus.Broadcaster,
	validationUtil *util.ValidationUtil,
	auditSvc audit.Service,
	ttls CacheTTLs,
) *ParticipantService {
	return &ParticipantService{
		participantDAO: participantDAO,
		cache:          cacheLayer,
		broadcaster:    broadcaster,
		validationUtil: validationUtil,
		auditSvc:       auditSvc,
		ttls:           ttls,
	}
}

// ListParticipants serves one page of participants, cache-aside.
func (s *ParticipantService) ListParticipants(ctx context.Context, page, limit int) (*model.ParticipantPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	key := cache.ParticipantListKey(page, limit)
	var cached model.ParticipantPage
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		pageResult, err := s.participantDAO.ListParticipants(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, pageResult, s.ttls.List)
		return pageResult, nil
	})
	if err != nil {
		logger.Error("Error listing participants", zap.Error(err), zap.Int("page", page), zap.Int("limit", limit))
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	return result.(*model.ParticipantPage), nil
}

// GetParticipant retrieves a participant by its ID, cache-aside. Concurrent
// misses for the same id collapse into a single store fetch.
func (s *ParticipantService) GetParticipant(ctx context.Context, participantID string) (*model.Participant, error) {
	key := cache.ParticipantKey(participantID)
	var cached model.Participant
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		participant, err := s.participantDAO.GetParticipant(ctx, participantID)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, participant, s.ttls.Point)
		return participant, nil
	})
	if err != nil {
		if errors.Is(err, meet_errors.ErrParticipantNotFound) {
			return nil, meet_errors.ErrParticipantNotFound
		}
		logger.Error("Error retrieving participant", zap.Error(err), zap.String("participantID", participantID))
		return nil, meet_errors.ErrInternalServer
	}

	return result.(*model.Participant), nil
}

// GetParticipantByEmail looks a participant up by its secondary key.
func (s *ParticipantService) GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error) {
	participant, err := s.participantDAO.GetParticipantByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, meet_errors.ErrParticipantNotFound) {
			return nil, meet_errors.ErrParticipantNotFound
		}
		logger.Error("Error retrieving participant by email", zap.Error(err), zap.String("email", email))
		return nil, meet_errors.ErrInternalServer
	}
	return participant, nil
}

// CreateParticipant handles the creation of a new participant.
func (s *ParticipantService) CreateParticipant(ctx context.Context, input model.NewParticipant, actorID string) (*model.Participant, error) {
	if err := s.validationUtil.ValidateNewParticipant(input); err != nil {
		logger.Error("Validation for participant data failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", meet_errors.ErrInvalidParticipantData, err)
	}

	participant, err := s.participantDAO.CreateParticipant(ctx, input)
	if err != nil {
		logger.Error("Error creating participant", zap.Error(err), zap.String("actorID", actorID))
		return nil, err
	}

	// Write-through: the point key is populated so an immediate read needs
	// no second store fetch; every cached list page is now stale.
	s.cache.Set(ctx, cache.ParticipantKey(participant.ID), participant, s.ttls.Point)
	s.cache.DeleteByPattern(ctx, cache.ParticipantListPattern())

	s.logAudit(actorID, "CREATE_PARTICIPANT", participant.ID, nil, participant)

	if err := s.publish(ctx, model.EventParticipantCreated, participant); err != nil {
		return participant, err
	}

	logger.Info("Participant created successfully",
		zap.String("participantID", participant.ID),
		zap.String("actorID", actorID))
	return participant, nil
}

// UpdateParticipant merges a patch into an existing participant.
func (s *ParticipantService) UpdateParticipant(ctx context.Context, participantID string, patch model.ParticipantPatch, actorID string) (*model.Participant, error) {
	if err := s.validationUtil.ValidateParticipantPatch(patch); err != nil {
		logger.Error("Validation for participant patch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", meet_errors.ErrInvalidParticipantData, err)
	}

	updated, err := s.participantDAO.UpdateParticipant(ctx, participantID, patch)
	if err != nil {
		if errors.Is(err, meet_errors.ErrParticipantNotFound) {
			return nil, meet_errors.ErrParticipantNotFound
		}
		logger.Error("Error updating participant", zap.Error(err),
			zap.String("participantID", participantID), zap.String("actorID", actorID))
		return nil, fmt.Errorf("failed to update participant: %w", err)
	}

	// Point invalidation is a refresh: no read between now and the next
	// mutation can observe the pre-update value.
	s.cache.Set(ctx, cache.ParticipantKey(participantID), updated, s.ttls.Point)
	s.cache.DeleteByPattern(ctx, cache.ParticipantListPattern())

	s.logAudit(actorID, "UPDATE_PARTICIPANT", participantID, patch, updated)

	if err := s.publish(ctx, model.EventParticipantUpdated, updated); err != nil {
		return updated, err
	}

	logger.Info("Participant updated successfully",
		zap.String("participantID", participantID),
		zap.String("actorID", actorID))
	return updated, nil
}

// DeleteParticipant removes a participant. Deleting an unknown id reports
// false without error and touches neither cache nor bus.
func (s *ParticipantService) DeleteParticipant(ctx context.Context, participantID string, actorID string) (bool, error) {
	deleted, err := s.participantDAO.DeleteParticipant(ctx, participantID)
	if err != nil {
		logger.Error("Error deleting participant", zap.Error(err),
			zap.String("participantID", participantID), zap.String("actorID", actorID))
		return false, fmt.Errorf("failed to delete participant: %w", err)
	}
	if !deleted {
		return false, nil
	}

	s.cache.Delete(ctx, cache.ParticipantKey(participantID))
	s.cache.DeleteByPattern(ctx, cache.ParticipantListPattern())

	s.logAudit(actorID, "DELETE_PARTICIPANT", participantID, nil, nil)

	if err := s.publish(ctx, model.EventParticipantDeleted, map[string]string{"id": participantID}); err != nil {
		return true, err
	}

	logger.Info("Participant deleted successfully",
		zap.String("participantID", participantID),
		zap.String("actorID", actorID))
	return true, nil
}

// publish sends the domain event after the mutation and invalidation are
// done. Failures are wrapped so callers can tell "mutation already happened"
// apart from "mutation failed".
func (s *ParticipantService) publish(ctx context.Context, eventType string, payload any) error {
	if err := s.broadcaster.Publish(ctx, model.ChannelParticipants, eventType, payload); err != nil {
		logger.Error("Broadcast failed after committed mutation",
			zap.Error(err),
			zap.String("eventType", eventType))
		return &meet_errors.BroadcastError{Channel: model.ChannelParticipants, Err: err}
	}
	return nil
}

// logAudit records the change asynchronously, best-effort. The write path
// never waits on the audit backend, and audit unavailability never fails a
// write. A detached context keeps the entry from being dropped when the
// originating request context is cancelled right after the response.
func (s *ParticipantService) logAudit(actorID, action, resourceID string, patch any, result any) {
	if s.auditSvc == nil {
		return
	}

	details, err := json.Marshal(map[string]any{"patch": patch, "result": result})
	if err != nil {
		details = nil
	}

	entry := audit.AuditLog{
		Timestamp:     time.Now(),
		Actor:         actorID,
		Action:        action,
		ResourceID:    resourceID,
		ChangeDetails: details,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.auditSvc.LogChange(ctx, entry); err != nil {
			logger.Warn("Failed to write audit log", zap.Error(err), zap.String("action", action))
		}
	}()
}
