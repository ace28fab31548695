// util/validation_util.go

package util

import (
	"fmt"
	"strings"

	"github.com/trackmeet/api/model"
)

var validStatuses = map[string]bool{
	"registered": true,
	"checked_in": true,
	"withdrawn":  true,
}

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateNewParticipant(input model.NewParticipant) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("participant name cannot be empty")
	}
	if !strings.Contains(input.Email, "@") {
		return fmt.Errorf("participant email is not valid")
	}
	// Add more validation rules as needed
	return nil
}

func (v *ValidationUtil) ValidateParticipantPatch(patch model.ParticipantPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return fmt.Errorf("participant name cannot be empty")
	}
	if patch.Email != nil && !strings.Contains(*patch.Email, "@") {
		return fmt.Errorf("participant email is not valid")
	}
	if patch.Status != nil && !validStatuses[*patch.Status] {
		return fmt.Errorf("unknown participant status: %s", *patch.Status)
	}
	return nil
}
