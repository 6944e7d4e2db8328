package models

import "time"

// Challenge is a one-time payload the wallet must sign to prove control
// of the reward-receiving account.
type Challenge struct {
	Identity  string    `json:"identity"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// ProofRequest is the signed challenge submitted by the caller.
type ProofRequest struct {
	Address   string `json:"address" binding:"required"`
	PublicKey string `json:"public_key" binding:"required"` // base64 ed25519
	Payload   string `json:"payload" binding:"required"`
	Signature string `json:"signature" binding:"required"` // base64
	Timestamp int64  `json:"timestamp" binding:"required"`
}

// ProofRecord is a verified wallet link.
type ProofRecord struct {
	Identity   string    `json:"identity"`
	Address    string    `json:"address"`
	VerifiedAt time.Time `json:"verified_at"`
}
