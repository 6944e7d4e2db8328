package models

import (
	"crypto/ed25519"
	"time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusSlashed Status = "slashed"
)

// Account is one staked attestor. Accounts are never deleted: slashed
// ones remain for audit and reinstatement requires a fresh registration.
type Account struct {
	AttestorID string            `json:"attestor_id"`
	PublicKey  ed25519.PublicKey `json:"public_key"`
	Stake      uint64            `json:"stake"`
	Reputation int64             `json:"reputation"`
	Status     Status            `json:"status"`

	SuccessfulVerifications uint64    `json:"successful_verifications"`
	FailedVerifications     uint64    `json:"failed_verifications"`
	SlashCount              uint32    `json:"slash_count"`
	LastSlashAt             time.Time `json:"last_slash_at,omitempty"`
	RegisteredAt            time.Time `json:"registered_at"`
}
