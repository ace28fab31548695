package model

import "time"

const DefaultParticipantStatus = "registered"

type Participant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Team      string    `json:"team,omitempty"`
	Division  string    `json:"division,omitempty"` // "junior", "senior", "masters"
	Status    string    `json:"status"`             // "registered", "checked_in", "withdrawn"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewParticipant is the caller-supplied shape for creation. There is
// deliberately no ID field: the store always assigns a fresh one.
type NewParticipant struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Team     string `json:"team,omitempty"`
	Division string `json:"division,omitempty"`
}

// ParticipantPatch enumerates exactly the fields a partial update may touch.
// Nil means "leave unchanged"; stray fields in a request body can never
// overwrite anything the patch does not name.
type ParticipantPatch struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Team     *string `json:"team,omitempty"`
	Division *string `json:"division,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ParticipantPage struct {
	Data       []*Participant `json:"data"`
	Pagination Pagination     `json:"pagination"`
}
