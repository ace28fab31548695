// dao/dao.go
package dao

import (
	"context"

	"github.com/trackmeet/api/model"
)

// ParticipantDAO owns canonical participant records. Implementations must
// treat an absent id as a signal (ErrParticipantNotFound / false), not a
// fault, and must never let callers construct partial records themselves.
type ParticipantDAO interface {
	ListParticipants(ctx context.Context, page, limit int) (*model.ParticipantPage, error)
	GetParticipant(ctx context.Context, participantID string) (*model.Participant, error)
	CreateParticipant(ctx context.Context, input model.NewParticipant) (*model.Participant, error)
	UpdateParticipant(ctx context.Context, participantID string, patch model.ParticipantPatch) (*model.Participant, error)
	DeleteParticipant(ctx context.Context, participantID string) (bool, error)
	GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error)
}
