// errors/participant_errors.go
package errors

import "errors"

var (
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrParticipantConflict    = errors.New("participant conflict")
	ErrInvalidParticipantData = errors.New("invalid participant data")
)
