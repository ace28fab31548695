// test/mock/participant_service.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/trackmeet/api/model"
)

// MockParticipantService is a mock implementation of service.IParticipantService
type MockParticipantService struct {
	mock.Mock
}

func (m *MockParticipantService) ListParticipants(ctx context.Context, page, limit int) (*model.ParticipantPage, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ParticipantPage), args.Error(1)
}

func (m *MockParticipantService) GetParticipant(ctx context.Context, participantID string) (*model.Participant, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *MockParticipantService) GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *MockParticipantService) CreateParticipant(ctx context.Context, input model.NewParticipant, actorID string) (*model.Participant, error) {
	args := m.Called(ctx, input, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *MockParticipantService) UpdateParticipant(ctx context.Context, participantID string, patch model.ParticipantPatch, actorID string) (*model.Participant, error) {
	args := m.Called(ctx, participantID, patch, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *MockParticipantService) DeleteParticipant(ctx context.Context, participantID string, actorID string) (bool, error) {
	args := m.Called(ctx, participantID, actorID)
	return args.Bool(0), args.Error(1)
}
