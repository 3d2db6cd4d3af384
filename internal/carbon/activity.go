package carbon

import "time"

// ActivityType categorises a logged activity
type ActivityType string

const (
	TypeTransport   ActivityType = "transport"
	TypeElectricity ActivityType = "electricity"
	TypeFood        ActivityType = "food"
	TypeOther       ActivityType = "other"
)

// Activity is a single footprint record owned by one user.
// Carbon is computed when the activity is recorded and never changes afterwards.
type Activity struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	Type       ActivityType `json:"type"`
	Value      float64      `json:"value"`
	Unit       string       `json:"unit"`
	Carbon     float64      `json:"carbon"`
	RecordedAt time.Time    `json:"date"`
}
