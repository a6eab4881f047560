package domain

// Roles carried in JWT claims. Creators draft, finalize and approve contracts;
// admins additionally manage templates. Signers act through public endpoints
// and never hold a token.
const (
	RoleAdmin   = "admin"
	RoleCreator = "creator"
)
