package otp

import (
	"context"
	"fmt"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/DosAbicos/2tick-sub000/internal/placeholder"
)

// ContactSource resolves where to deliver a code for a given subject.
type ContactSource interface {
	SignerPhone(ctx context.Context, subjectID string) (string, error)
}

type contractGetter interface {
	Get(ctx context.Context, contractID string) (*domain.Contract, error)
}

type repoContacts struct {
	contracts contractGetter
}

// NewContacts reads the signer's phone out of a contract's signer-owned
// placeholder values.
func NewContacts(contracts contractGetter) ContactSource {
	return &repoContacts{contracts: contracts}
}

func (c *repoContacts) SignerPhone(ctx context.Context, subjectID string) (string, error) {
	contract, err := c.contracts.Get(ctx, subjectID)
	if err != nil {
		return "", err
	}
	info := placeholder.ExtractSigner(contract.Placeholders, contract.Values)
	if info.Phone == "" {
		return "", fmt.Errorf("signer phone not filled in: %w", domain.ErrBadRequest)
	}
	return info.Phone, nil
}
