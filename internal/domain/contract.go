package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Contract statuses. Transitions are forward-only: draft -> sent ->
// pending_signature -> signed. A contract never reverts.
const (
	StatusDraft            = "draft"
	StatusSent             = "sent"
	StatusPendingSignature = "pending_signature"
	StatusSigned           = "signed"
)

// SignatureArtifact is a derived hash binding a party to the document at a
// point in time. Explicitly not a cryptographic non-repudiation signature.
type SignatureArtifact struct {
	Hash     string    `json:"hash" dynamodbav:"hash"`
	Channel  string    `json:"channel" dynamodbav:"channel"`
	SignedAt time.Time `json:"signed_at" dynamodbav:"signed_at"`
}

// NewSignatureArtifact derives the hash over subject, channel, timestamp and
// the presented code.
func NewSignatureArtifact(subjectID, channel string, at time.Time, code string) *SignatureArtifact {
	sum := sha256.Sum256([]byte(subjectID + "|" + channel + "|" + at.Format(time.RFC3339Nano) + "|" + code))
	return &SignatureArtifact{
		Hash:     hex.EncodeToString(sum[:]),
		Channel:  channel,
		SignedAt: at,
	}
}

type Contract struct {
	ContractID string `json:"id" dynamodbav:"contract_id"`
	Code       string `json:"code" dynamodbav:"code"`
	TemplateID string `json:"template_id,omitempty" dynamodbav:"template_id"`
	Status     string `json:"status" dynamodbav:"status"`

	// Snapshot of the template taken at creation. Freeform contracts carry
	// their own content and placeholder definitions here.
	Placeholders map[string]Placeholder `json:"placeholders" dynamodbav:"placeholders"`
	Content      string                 `json:"content" dynamodbav:"content"`

	// Values holds resolved placeholder values, keyed by placeholder key.
	// Writes are partitioned by the placeholder's owner: the creator may only
	// write creator-owned keys, the signer only signer-owned keys.
	Values map[string]string `json:"values" dynamodbav:"values"`

	// Frozen at finalize time (draft -> sent). ApprovedAt is set exactly once.
	ApprovedContent string            `json:"approved_content,omitempty" dynamodbav:"approved_content"`
	ApprovedValues  map[string]string `json:"approved_values,omitempty" dynamodbav:"approved_values"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty" dynamodbav:"approved_at"`

	// Convenience fields derived from signer-owned placeholder values.
	// Never the source of truth.
	SignerName  string `json:"signer_name,omitempty" dynamodbav:"signer_name"`
	SignerPhone string `json:"signer_phone,omitempty" dynamodbav:"signer_phone"`
	SignerEmail string `json:"signer_email,omitempty" dynamodbav:"signer_email"`
	SignerIIN   string `json:"signer_iin,omitempty" dynamodbav:"signer_iin"`

	SignerSignature  *SignatureArtifact `json:"signer_signature,omitempty" dynamodbav:"signer_signature"`
	CreatorSignature *SignatureArtifact `json:"creator_signature,omitempty" dynamodbav:"creator_signature"`

	// Set at the pending_signature transition: the approved snapshot with the
	// signer's values filled in.
	SignedContent string `json:"signed_content,omitempty" dynamodbav:"signed_content"`
	// S3 location of the frozen snapshot, set at the signed transition.
	SnapshotURL string `json:"snapshot_url,omitempty" dynamodbav:"snapshot_url"`

	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateContractRequest struct {
	TemplateID string `json:"template_id"`
	// Content is used for freeform contracts created without a template.
	Content      string                 `json:"content"`
	Placeholders map[string]Placeholder `json:"placeholders"`
	Values       map[string]string      `json:"values"`
}

type UpdateValuesRequest struct {
	Values map[string]string `json:"values" validate:"required"`
}
