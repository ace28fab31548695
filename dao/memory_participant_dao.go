// dao/memory_participant_dao.go
package dao

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	meet_errors "github.com/trackmeet/api/errors"
	"github.com/trackmeet/api/model"
)

// MemoryParticipantDAO keeps records in an explicit in-process map. It backs
// the "memory" storage driver and serves as the store double in tests; the
// map is owned by the DAO instance, never shared module state.
type MemoryParticipantDAO struct {
	mu      sync.RWMutex
	records map[string]*model.Participant
	now     func() time.Time
}

var _ ParticipantDAO = (*MemoryParticipantDAO)(nil)

func NewMemoryParticipantDAO() *MemoryParticipantDAO {
	return &MemoryParticipantDAO{
		records: make(map[string]*model.Participant),
		now:     time.Now,
	}
}

// ordered returns all records sorted by creation time, then id for stability.
func (dao *MemoryParticipantDAO) ordered() []*model.Participant {
	out := make([]*model.Participant, 0, len(dao.records))
	for _, p := range dao.records {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (dao *MemoryParticipantDAO) ListParticipants(_ context.Context, page, limit int) (*model.ParticipantPage, error) {
	dao.mu.RLock()
	defer dao.mu.RUnlock()

	all := dao.ordered()
	total := len(all)
	totalPages := (total + limit - 1) / limit

	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	data := make([]*model.Participant, 0, end-offset)
	for _, p := range all[offset:end] {
		copied := *p
		data = append(data, &copied)
	}

	return &model.ParticipantPage{
		Data: data,
		Pagination: model.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (dao *MemoryParticipantDAO) GetParticipant(_ context.Context, participantID string) (*model.Participant, error) {
	dao.mu.RLock()
	defer dao.mu.RUnlock()

	p, ok := dao.records[participantID]
	if !ok {
		return nil, meet_errors.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (dao *MemoryParticipantDAO) CreateParticipant(_ context.Context, input model.NewParticipant) (*model.Participant, error) {
	now := dao.now()
	p := &model.Participant{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Email:     input.Email,
		Team:      input.Team,
		Division:  input.Division,
		Status:    model.DefaultParticipantStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dao.mu.Lock()
	dao.records[p.ID] = p
	dao.mu.Unlock()

	copied := *p
	return &copied, nil
}

func (dao *MemoryParticipantDAO) UpdateParticipant(_ context.Context, participantID string, patch model.ParticipantPatch) (*model.Participant, error) {
	dao.mu.Lock()
	defer dao.mu.Unlock()

	p, ok := dao.records[participantID]
	if !ok {
		return nil, meet_errors.ErrParticipantNotFound
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Team != nil {
		p.Team = *patch.Team
	}
	if patch.Division != nil {
		p.Division = *patch.Division
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.UpdatedAt = dao.now()

	copied := *p
	return &copied, nil
}

func (dao *MemoryParticipantDAO) DeleteParticipant(_ context.Context, participantID string) (bool, error) {
	dao.mu.Lock()
	defer dao.mu.Unlock()

	if _, ok := dao.records[participantID]; !ok {
		return false, nil
	}
	delete(dao.records, participantID)
	return true, nil
}

func (dao *MemoryParticipantDAO) GetParticipantByEmail(_ context.Context, email string) (*model.Participant, error) {
	dao.mu.RLock()
	defer dao.mu.RUnlock()

	for _, p := range dao.ordered() {
		if p.Email == email {
			copied := *p
			return &copied, nil
		}
	}
	return nil, meet_errors.ErrParticipantNotFound
}
