package placeholder

import "github.com/DosAbicos/2tick-sub000/internal/domain"

// SignerInfo holds the signer identity fields derived from placeholder values.
// Convenience data only, never the source of truth.
type SignerInfo struct {
	Name  string
	Phone string
	Email string
	IIN   string
}

// Candidate keys per semantic role, tried in order: legacy aliases first,
// the dedicated modern key last. First non-empty signer-owned value wins.
var signerAliases = map[string][]string{
	"name":  {"FIO_2", "TENANT_NAME", "SIGNER_NAME"},
	"phone": {"PHONE_2", "TENANT_PHONE", "SIGNER_PHONE"},
	"email": {"EMAIL_2", "TENANT_EMAIL", "SIGNER_EMAIL"},
	"iin":   {"IIN_2", "TENANT_IIN", "SIGNER_IIN"},
}

// ExtractSigner derives the signer's identity fields from signer-owned
// placeholder values. Creator-owned keys are never read, even if the creator
// filled a signer-labeled field.
func ExtractSigner(defs map[string]domain.Placeholder, values Values) SignerInfo {
	pick := func(role string) string {
		for _, k := range signerAliases[role] {
			def, ok := defs[k]
			if !ok || def.Owner != domain.OwnerSigner {
				continue
			}
			if v := values[k]; v != "" {
				return v
			}
		}
		return ""
	}
	return SignerInfo{
		Name:  pick("name"),
		Phone: pick("phone"),
		Email: pick("email"),
		IIN:   pick("iin"),
	}
}
