package match

import (
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// Status tracks a match through its allocation workflow. Transitions are
// linear and terminal once the match is accepted, declined or expired.
type Status string

const (
	StatusPending  Status = "pending"
	StatusMatched  Status = "matched"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Valid reports whether s is a known match status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusAccepted, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether the status may move from -> to.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusMatched
	case StatusMatched:
		return to == StatusAccepted || to == StatusDeclined || to == StatusExpired
	}
	return false
}

// OrganType enumerates the organ kinds handled by the registries.
type OrganType string

const (
	OrganKidney OrganType = "kidney"
	OrganHeart  OrganType = "heart"
	OrganLiver  OrganType = "liver"
	OrganLung   OrganType = "lung"
)

// Valid reports whether t is a known organ type.
func (t OrganType) Valid() bool {
	switch t {
	case OrganKidney, OrganHeart, OrganLiver, OrganLung:
		return true
	}
	return false
}

// Match is a persisted decision pairing one organ with one need. Score is a
// fixed 1.0 sentinel meaning "compatible"; real weighting is future work.
type Match struct {
	ID                 int64     `json:"id"`
	DonorID            string    `json:"donor_id"`
	OrganID            string    `json:"organ_id"`
	RecipientID        string    `json:"recipient_id"`
	DonorBloodType     string    `json:"donor_blood_type"`
	RecipientBloodType string    `json:"recipient_blood_type"`
	OrganType          OrganType `json:"organ_type"`
	Score              float64   `json:"score"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

// Validate rejects malformed enum values before any persistence happens.
func (m *Match) Validate() error {
	if m.DonorID == "" || m.OrganID == "" || m.RecipientID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "donor_id, organ_id and recipient_id are required")
	}
	if !m.Status.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid match status: "+string(m.Status))
	}
	if m.OrganType != "" && !m.OrganType.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid organ type: "+string(m.OrganType))
	}
	return nil
}

// UpdateParams carries a partial update. Nil fields keep their prior value.
type UpdateParams struct {
	DonorID            *string    `json:"donor_id"`
	OrganID            *string    `json:"organ_id"`
	RecipientID        *string    `json:"recipient_id"`
	DonorBloodType     *string    `json:"donor_blood_type"`
	RecipientBloodType *string    `json:"recipient_blood_type"`
	OrganType          *OrganType `json:"organ_type"`
	Score              *float64   `json:"score"`
	Status             *Status    `json:"status"`
}

// applyTo validates the partial update against the current match and mutates a
// copy. A matched (or later) match is never re-pointed at a different organ,
// donor or recipient.
func (p UpdateParams) applyTo(cur Match) (Match, error) {
	if p.Status != nil {
		if !p.Status.Valid() {
			return Match{}, dErrors.New(dErrors.CodeBadRequest, "invalid match status: "+string(*p.Status))
		}
		if !CanTransition(cur.Status, *p.Status) {
			return Match{}, dErrors.New(dErrors.CodeConflict,
				"invalid status transition "+string(cur.Status)+" -> "+string(*p.Status))
		}
	}
	if p.OrganType != nil && !p.OrganType.Valid() {
		return Match{}, dErrors.New(dErrors.CodeBadRequest, "invalid organ type: "+string(*p.OrganType))
	}
	if cur.Status != StatusPending {
		if (p.DonorID != nil && *p.DonorID != cur.DonorID) ||
			(p.OrganID != nil && *p.OrganID != cur.OrganID) ||
			(p.RecipientID != nil && *p.RecipientID != cur.RecipientID) {
			return Match{}, dErrors.New(dErrors.CodeConflict, "matched allocation cannot be re-pointed")
		}
	}

	next := cur
	if p.DonorID != nil {
		next.DonorID = *p.DonorID
	}
	if p.OrganID != nil {
		next.OrganID = *p.OrganID
	}
	if p.RecipientID != nil {
		next.RecipientID = *p.RecipientID
	}
	if p.DonorBloodType != nil {
		next.DonorBloodType = *p.DonorBloodType
	}
	if p.RecipientBloodType != nil {
		next.RecipientBloodType = *p.RecipientBloodType
	}
	if p.OrganType != nil {
		next.OrganType = *p.OrganType
	}
	if p.Score != nil {
		next.Score = *p.Score
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	return next, nil
}
