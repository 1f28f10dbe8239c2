package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
)

// Activity is one entry of a user's activity log.
type Activity struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Action    constants.Action `json:"action"`
	ContactID *uuid.UUID       `json:"contact_id,omitempty"`
	Details   string           `json:"details"`
	CreatedAt time.Time        `json:"created_at"`
}

// ActionCount is the number of activity entries with one action.
type ActionCount struct {
	Action constants.Action `json:"action"`
	Count  int              `json:"count"`
}

// Analytics is the dashboard time series for the last Period days. Growth
// maps are keyed by UTC date (YYYY-MM-DD) and only hold days with entries.
type Analytics struct {
	ContactGrowth      map[string]int `json:"contactGrowth"`
	UploadGrowth       map[string]int `json:"uploadGrowth"`
	ExportGrowth       map[string]int `json:"exportGrowth"`
	ActionDistribution []ActionCount  `json:"actionDistribution"`
	StatusDistribution StatusCounts   `json:"statusDistribution"`
	Period             int            `json:"period"`
}

type StatusCounts struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Unsent int `json:"unsent"`
}
