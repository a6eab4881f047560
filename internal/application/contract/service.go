package contract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/DosAbicos/2tick-sub000/internal/pkg/id"
	"github.com/DosAbicos/2tick-sub000/internal/placeholder"
)

// Service drives the contract lifecycle: draft -> sent -> pending_signature
// -> signed. Transitions only move forward; each one is guarded by a
// conditional write so concurrent requests cannot double-fire.
type Service interface {
	Create(ctx context.Context, req domain.CreateContractRequest) (*domain.Contract, error)
	Get(ctx context.Context, contractID string) (*domain.Contract, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.Contract, string, error)
	UpdateCreatorValues(ctx context.Context, contractID string, values map[string]string) (*domain.Contract, error)
	UpdateSignerValues(ctx context.Context, contractID string, values map[string]string) (*domain.Contract, error)
	Finalize(ctx context.Context, contractID string) (*domain.Contract, error)
	VerifySign(ctx context.Context, contractID, channel, code string) (*domain.SignatureArtifact, error)
	Approve(ctx context.Context, contractID string) (*domain.Contract, error)
	ResolvedContent(ctx context.Context, contractID, viewer string) (string, error)
	SnapshotLink(ctx context.Context, contractID string) (string, error)
}

type contractStore interface {
	Put(ctx context.Context, c *domain.Contract) error
	Get(ctx context.Context, contractID string) (*domain.Contract, error)
	Update(ctx context.Context, contractID string, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, contractID, fromStatus, toStatus string, updates map[string]interface{}) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Contract, string, error)
}

type templateStore interface {
	Get(ctx context.Context, templateID string) (*domain.Template, error)
}

type codeVerifier interface {
	Verify(ctx context.Context, subjectID, channel, code string) (*domain.SignatureArtifact, error)
}

type snapshotStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// ServiceDeps wires the service's collaborators. Snapshots and Mailer are
// optional; when nil the signed copy is not archived and no email goes out.
type ServiceDeps struct {
	ContractRepo contractStore
	TemplateRepo templateStore
	Verifier     codeVerifier
	Snapshots    snapshotStore
	Mailer       mailer
}

type service struct {
	repo      contractStore
	templates templateStore
	verifier  codeVerifier
	snapshots snapshotStore
	mailer    mailer
	now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:      deps.ContractRepo,
		templates: deps.TemplateRepo,
		verifier:  deps.Verifier,
		snapshots: deps.Snapshots,
		mailer:    deps.Mailer,
		now:       time.Now,
	}
}

// Create snapshots the template's content and placeholder definitions into the
// contract, so later template edits never change documents already in flight.
func (s *service) Create(ctx context.Context, req domain.CreateContractRequest) (*domain.Contract, error) {
	content := req.Content
	defs := req.Placeholders

	if req.TemplateID != "" {
		tpl, err := s.templates.Get(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		content = tpl.Content
		defs = tpl.Placeholders
	}
	if content == "" {
		return nil, fmt.Errorf("contract content required: %w", domain.ErrBadRequest)
	}
	if defs == nil {
		defs = map[string]domain.Placeholder{}
	}

	values := map[string]string{}
	for k, v := range req.Values {
		values[k] = v
	}
	if err := checkWritable(defs, values, domain.OwnerCreator); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	contractID := id.New()
	c := &domain.Contract{
		ContractID:   contractID,
		Code:         contractCode(contractID),
		TemplateID:   req.TemplateID,
		Status:       domain.StatusDraft,
		Placeholders: defs,
		Content:      content,
		Values:       values,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, contractID string) (*domain.Contract, error) {
	return s.repo.Get(ctx, contractID)
}

func (s *service) List(ctx context.Context, limit int32, cursor string) ([]domain.Contract, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ScanPage(ctx, limit, cursor)
}

// UpdateCreatorValues fills creator-owned placeholders. Allowed only while the
// contract is a draft; after finalization the creator's side is frozen.
func (s *service) UpdateCreatorValues(ctx context.Context, contractID string, values map[string]string) (*domain.Contract, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusDraft {
		return nil, fmt.Errorf("creator fields are frozen after finalization: %w", domain.ErrInvalidTransition)
	}
	if err := checkWritable(c.Placeholders, values, domain.OwnerCreator); err != nil {
		return nil, err
	}
	merged := mergeValues(c.Values, values)
	if err := s.repo.Update(ctx, contractID, map[string]interface{}{"values": merged}); err != nil {
		return nil, err
	}
	c.Values = merged
	return c, nil
}

// UpdateSignerValues fills signer-owned placeholders through the public link.
// Writable up to and including the sent status; once verification starts the
// signer's side is frozen too.
func (s *service) UpdateSignerValues(ctx context.Context, contractID string, values map[string]string) (*domain.Contract, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusDraft && c.Status != domain.StatusSent {
		return nil, fmt.Errorf("signer fields are frozen once signing begins: %w", domain.ErrInvalidTransition)
	}
	if err := checkWritable(c.Placeholders, values, domain.OwnerSigner); err != nil {
		return nil, err
	}
	merged := mergeValues(c.Values, values)

	info := placeholder.ExtractSigner(c.Placeholders, merged)
	updates := map[string]interface{}{
		"values":       merged,
		"signer_name":  info.Name,
		"signer_phone": info.Phone,
		"signer_email": info.Email,
		"signer_iin":   info.IIN,
	}
	if err := s.repo.Update(ctx, contractID, updates); err != nil {
		return nil, err
	}
	c.Values = merged
	c.SignerName, c.SignerPhone, c.SignerEmail, c.SignerIIN = info.Name, info.Phone, info.Email, info.IIN
	return c, nil
}

// Finalize moves draft -> sent. It requires every required creator-owned
// placeholder to be filled, then freezes the creator's side into an approved
// snapshot. Signer-owned markers stay raw in the snapshot for the signer to
// see and fill.
func (s *service) Finalize(ctx context.Context, contractID string) (*domain.Contract, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusDraft {
		return nil, fmt.Errorf("contract is not a draft: %w", domain.ErrInvalidTransition)
	}

	var missing []string
	for key, def := range c.Placeholders {
		if def.Owner != domain.OwnerCreator || !def.Required || def.Type == domain.PlaceholderCalculated {
			continue
		}
		if strings.TrimSpace(c.Values[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required fields not filled: %s: %w", strings.Join(missing, ", "), domain.ErrBadRequest)
	}

	res := placeholder.ResolveForViewer(c.Placeholders, c.Values, c.Content, domain.OwnerCreator, placeholder.Options{})
	if err := failOnBrokenFormulas(res); err != nil {
		return nil, err
	}

	approvedValues := mergeValues(c.Values, nil)
	now := s.now().UTC()
	updates := map[string]interface{}{
		"approved_content": res.Text,
		"approved_values":  approvedValues,
		"approved_at":      now.Format(time.RFC3339),
	}
	if err := s.repo.UpdateStatus(ctx, contractID, domain.StatusDraft, domain.StatusSent, updates); err != nil {
		return nil, err
	}
	c.Status = domain.StatusSent
	c.ApprovedContent = res.Text
	c.ApprovedValues = approvedValues
	c.ApprovedAt = &now
	return c, nil
}

// VerifySign moves sent -> pending_signature. The one-time code is consumed
// first; only a successful consume produces the signer's signature artifact
// and renders the signed document.
func (s *service) VerifySign(ctx context.Context, contractID, channel, code string) (*domain.SignatureArtifact, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusSent {
		return nil, fmt.Errorf("contract is not awaiting signature: %w", domain.ErrInvalidTransition)
	}

	artifact, err := s.verifier.Verify(ctx, contractID, channel, code)
	if err != nil {
		return nil, err
	}

	// Signer values land in the approved snapshot, whose creator-owned
	// markers were already substituted at finalization.
	res := placeholder.Resolve(c.Placeholders, c.Values, c.ApprovedContent, placeholder.Options{})
	info := placeholder.ExtractSigner(c.Placeholders, c.Values)

	updates := map[string]interface{}{
		"signer_signature": artifact,
		"signed_content":   res.Text,
		"signer_name":      info.Name,
		"signer_phone":     info.Phone,
		"signer_email":     info.Email,
		"signer_iin":       info.IIN,
	}
	if err := s.repo.UpdateStatus(ctx, contractID, domain.StatusSent, domain.StatusPendingSignature, updates); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Approve moves pending_signature -> signed: the creator countersigns,
// the signed copy is archived and the signer is notified.
func (s *service) Approve(ctx context.Context, contractID string) (*domain.Contract, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusPendingSignature {
		return nil, fmt.Errorf("contract has no pending signature to approve: %w", domain.ErrInvalidTransition)
	}

	now := s.now().UTC()
	artifact := domain.NewSignatureArtifact(contractID, "approval", now, c.Code)

	updates := map[string]interface{}{
		"creator_signature": artifact,
	}

	if s.snapshots != nil {
		url, err := s.snapshots.Upload(ctx, snapshotKey(contractID), strings.NewReader(c.SignedContent), "text/plain; charset=utf-8")
		if err != nil {
			slog.Warn("archive signed copy", "contract_id", contractID, "error", err)
		} else {
			updates["snapshot_url"] = url
			c.SnapshotURL = url
		}
	}

	if err := s.repo.UpdateStatus(ctx, contractID, domain.StatusPendingSignature, domain.StatusSigned, updates); err != nil {
		return nil, err
	}
	c.Status = domain.StatusSigned
	c.CreatorSignature = artifact

	if s.mailer != nil && c.SignerEmail != "" {
		subject := fmt.Sprintf("Contract %s signed", c.Code)
		body := fmt.Sprintf("Contract %s has been signed by both parties.", c.Code)
		if err := s.mailer.SendEmail(c.SignerEmail, subject, body); err != nil {
			slog.Warn("notify signer", "contract_id", contractID, "error", err)
		}
	}
	return c, nil
}

// ResolvedContent renders the document for a given viewer. Creator and signer
// views substitute only that party's fields; the final view returns the fully
// signed text once it exists.
func (s *service) ResolvedContent(ctx context.Context, contractID, viewer string) (string, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return "", err
	}
	switch viewer {
	case domain.OwnerCreator, domain.OwnerSigner:
		content := c.Content
		if viewer == domain.OwnerSigner && c.ApprovedContent != "" {
			content = c.ApprovedContent
		}
		res := placeholder.ResolveForViewer(c.Placeholders, c.Values, content, viewer, placeholder.Options{})
		return res.Text, nil
	case "final":
		if c.SignedContent != "" {
			return c.SignedContent, nil
		}
		res := placeholder.Resolve(c.Placeholders, c.Values, c.Content, placeholder.Options{})
		return res.Text, nil
	default:
		return "", fmt.Errorf("unknown viewer %q: %w", viewer, domain.ErrBadRequest)
	}
}

// snapshotLinkTTL bounds how long a handed-out snapshot link stays valid.
const snapshotLinkTTL = 15 * time.Minute

// SnapshotLink returns a time-limited download URL for the archived signed
// copy. Available only once the contract is signed and the archive upload
// succeeded.
func (s *service) SnapshotLink(ctx context.Context, contractID string) (string, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return "", err
	}
	if c.Status != domain.StatusSigned || c.SnapshotURL == "" {
		return "", fmt.Errorf("no archived copy for contract %s: %w", contractID, domain.ErrNotFound)
	}
	if s.snapshots == nil {
		return "", fmt.Errorf("snapshot store unavailable: %w", domain.ErrNotFound)
	}
	return s.snapshots.PresignedURL(ctx, snapshotKey(contractID), snapshotLinkTTL)
}

func snapshotKey(contractID string) string {
	return fmt.Sprintf("contracts/%s/signed.txt", contractID)
}

// checkWritable rejects writes to unknown keys, calculated fields and
// placeholders owned by the other party.
func checkWritable(defs map[string]domain.Placeholder, values map[string]string, owner string) error {
	for key := range values {
		def, ok := defs[key]
		if !ok {
			return fmt.Errorf("unknown placeholder %q: %w", key, domain.ErrBadRequest)
		}
		if def.Type == domain.PlaceholderCalculated {
			return fmt.Errorf("placeholder %q is calculated and cannot be set: %w", key, domain.ErrBadRequest)
		}
		if def.Owner != owner {
			return fmt.Errorf("placeholder %q belongs to %s: %w", key, def.Owner, domain.ErrOwnershipViolation)
		}
	}
	return nil
}

func mergeValues(base, overlay map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// failOnBrokenFormulas blocks finalization on structurally broken formulas
// (cycles, unparsable expressions). Formulas still waiting on signer values
// report missing operands and pass through; they resolve at signing time.
func failOnBrokenFormulas(res placeholder.Result) error {
	for key, fe := range res.FieldErrors {
		if fe.Kind == placeholder.ErrCircularFormula || fe.Kind == placeholder.ErrBadFormula {
			return fmt.Errorf("formula for %q is invalid: %w", key, domain.ErrBadRequest)
		}
	}
	return nil
}

func contractCode(contractID string) string {
	if len(contractID) <= 8 {
		return "CT-" + contractID
	}
	return "CT-" + contractID[len(contractID)-8:]
}
