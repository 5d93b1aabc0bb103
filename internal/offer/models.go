package offer

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// Status tracks the delivery/acceptance workflow of an offer.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Valid reports whether s is a known offer status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// Offer is the delivery workflow record derived from a match. Every offer
// references exactly one existing match.
type Offer struct {
	ID          int64     `json:"id"`
	MatchID     int64     `json:"match_id"`
	RecipientID string    `json:"recipient_id,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate rejects malformed offers before persistence.
func (o *Offer) Validate() error {
	if o.MatchID <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "match_id is required")
	}
	if !o.Status.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid offer status: "+string(o.Status))
	}
	return nil
}

// UpdateParams carries a partial update. Nil fields keep their prior value.
type UpdateParams struct {
	RecipientID *string `json:"recipient_id"`
	Status      *Status `json:"status"`
}

// Page bounds a List call.
type Page struct {
	Limit  int
	Offset int
}

// Fingerprint returns a deterministic content hash over the serialized page,
// used as the cache validator for offer listings. Identical page content
// always yields the identical fingerprint.
func Fingerprint(offers []Offer) string {
	body, _ := json.Marshal(offers)
	sum := sha1.Sum(body)
	return hex.EncodeToString(sum[:])
}
