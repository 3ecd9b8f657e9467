package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims carried by ledger API callers.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID string   `json:"operator_id"`
	BranchID   string   `json:"branch_id,omitempty"`
	Roles      []string `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Actor returns the identifier recorded against ledger mutations.
func (c Claims) Actor() string {
	if c.OperatorID != "" {
		return c.OperatorID
	}
	return c.Subject
}

// Role constants
const (
	RoleAdmin     = "admin"
	RoleCollector = "collector"
	RoleReviewer  = "reviewer"
	RoleAuditor   = "auditor"
	RoleService   = "service"
)
