package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ZKPAttestation is a zero-knowledge attestation accepted into a profile.
// The proof math itself is validated by the external verifier; this
// service enforces freshness and issuer trust.
type ZKPAttestation struct {
	AttestationID string    `json:"attestation_id"`
	ProofBytes    []byte    `json:"proof_bytes"`
	PublicInputs  []byte    `json:"public_inputs"`
	Issuer        string    `json:"issuer"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Digest identifies an attestation for replay detection: the same proof
// from the same issuer at the same instant is the same attestation.
func (a *ZKPAttestation) Digest() string {
	h := sha256.New()
	h.Write([]byte(a.Issuer))
	h.Write([]byte{0})
	h.Write([]byte(a.AttestationID))
	h.Write([]byte{0})
	h.Write([]byte(fmt.Sprintf("%d", a.IssuedAt.Unix())))
	h.Write([]byte{0})
	h.Write(a.ProofBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// Profile is the per-identity verification state. Created on the first
// verification attempt and never deleted; fraud only flags it.
type Profile struct {
	IdentityID         string           `json:"identity_id"`
	LinkedAccount      string           `json:"linked_account,omitempty"`
	SessionVerified    bool             `json:"session_verified"`
	WalletLinkVerified bool             `json:"wallet_link_verified"`
	Attestations       []ZKPAttestation `json:"attestations"` // insertion order = issuance order
	MultiFactorScore   uint8            `json:"multi_factor_score"`
	LastVerificationAt time.Time        `json:"last_verification_at"`
	FraudFlag          bool             `json:"fraud_flag"`
}

// HasAttestation reports whether an identical attestation was already
// accepted.
func (p *Profile) HasAttestation(digest string) bool {
	for i := range p.Attestations {
		if p.Attestations[i].Digest() == digest {
			return true
		}
	}
	return false
}

// MultiFactorSignals are the four independently weighted sub-checks, each
// binary: full 25 points or nothing.
type MultiFactorSignals struct {
	AchievementsAboveThreshold bool `json:"achievements_above_threshold"`
	QualifyingAssetHeld        bool `json:"qualifying_asset_held"`
	OnChainActivity            bool `json:"on_chain_activity"`
	ExternalReputation         bool `json:"external_reputation"`
}

// Score sums the signals, 25 points each.
func (m MultiFactorSignals) Score() uint8 {
	var score uint8
	for _, ok := range []bool{
		m.AchievementsAboveThreshold,
		m.QualifyingAssetHeld,
		m.OnChainActivity,
		m.ExternalReputation,
	} {
		if ok {
			score += 25
		}
	}
	return score
}

// AttestationRequest is the submission payload for a ZKP attestation.
type AttestationRequest struct {
	AttestationID string `json:"attestation_id" binding:"required"`
	Proof         []byte `json:"proof" binding:"required"`
	PublicInputs  []byte `json:"public_inputs" binding:"required"`
	Issuer        string `json:"issuer" binding:"required"`
	IssuedAt      int64  `json:"issued_at" binding:"required"`
}
