package domain

import "time"

type DuesStanding string

const (
	DuesCurrent    DuesStanding = "current"
	DuesDelinquent DuesStanding = "delinquent"
)

func ParseDuesStanding(s string) (DuesStanding, bool) {
	switch DuesStanding(s) {
	case DuesCurrent, DuesDelinquent:
		return DuesStanding(s), true
	default:
		return "", false
	}
}

// Member is a dues-paying member of the organization, keyed by their
// 11-digit national ID.
type Member struct {
	ID            int64        `json:"id"`
	NationalID    string       `json:"national_id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	Standing      DuesStanding `json:"standing"`
	Active        bool         `json:"active"`
	LastPaymentAt *time.Time   `json:"last_payment_at,omitempty"`
	RegisteredAt  time.Time    `json:"registered_at"`
}

// CanReserve reports whether the member may book the pit.
func (m *Member) CanReserve() bool {
	return m.Active && m.Standing == DuesCurrent
}
