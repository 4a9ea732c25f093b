package domain

import "time"

type DropReason string

const (
	DropAllNull        DropReason = "all_null"
	DropMissingField   DropReason = "missing_field"
	DropInvalidAirport DropReason = "invalid_airport"
	DropInvalidFare    DropReason = "invalid_fare"
)

var DropReasons = []DropReason{DropAllNull, DropMissingField, DropInvalidAirport, DropInvalidFare}

// ConfirmState is a reservation's position in the confirmation lifecycle.
type ConfirmState string

const (
	StatePending           ConfirmState = "pending"
	StateAttempting        ConfirmState = "attempting"
	StateRetryScheduled    ConfirmState = "retry_scheduled"
	StateSucceeded         ConfirmState = "succeeded"
	StateConfirmed         ConfirmState = "confirmed"
	StatePermanentlyFailed ConfirmState = "permanently_failed"
)

func (s ConfirmState) Terminal() bool {
	return s == StateConfirmed || s == StatePermanentlyFailed
}

// Outcome is the result of dispatching one reservation.
type Outcome struct {
	ReservationID string
	State         ConfirmState
	Attempts      int
	Retries       int
	History       []ConfirmState
	Err           error
}

type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Input      int
	Dropped    map[DropReason]int
	Duplicates int
	Clean      int
	Confirmed  int
	Failed     int
}

func (s RunSummary) DroppedTotal() int {
	n := 0
	for _, c := range s.Dropped {
		n += c
	}
	return n
}

// Read models
type ReservationView struct {
	ID            string `json:"id"`
	PassengerName string `json:"passenger_name"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Fare          string `json:"fare"`
	Status        string `json:"status"`
	Confirmation  string `json:"confirmation"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"last_error,omitempty"`
	RunID         string `json:"run_id"`
}

type RunView struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Input      int            `json:"input"`
	Dropped    map[string]int `json:"dropped"`
	Duplicates int            `json:"duplicates"`
	Clean      int            `json:"clean"`
	Confirmed  int            `json:"confirmed"`
	Failed     int            `json:"failed"`
}

// Transition moves the outcome to s and appends s to its history.
func (o *Outcome) Transition(s ConfirmState) {
	o.State = s
	o.History = append(o.History, s)
}
