// Package events defines the settlement notifications published after a
// ledger entry reaches a terminal state.
package events

import "time"

type Settlement struct {
	ExternalID string    `json:"external_id"`
	Requisite  string    `json:"requisite"`
	Amount     string    `json:"amount"`
	Status     string    `json:"status"`
	SettledAt  time.Time `json:"settled_at"`
}
