// Package auth resolves bearer credentials into principals. Operators hold
// short-lived JWT sessions; applications authenticate with API keys and are
// confined to their own tenant.
package auth

import (
	"strings"

	"github.com/google/uuid"
)

type Kind int

const (
	KindOperator Kind = iota + 1
	KindApplication
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// ParseRole accepts the roles an operator token may carry.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleAgent:
		return Role(s), true
	}
	return "", false
}

// Principal is the caller identity derived from a request's credential.
type Principal struct {
	Kind Kind

	OperatorID uuid.UUID
	Email      string
	Name       string
	Role       Role

	ApplicationID uuid.UUID
}

func Operator(id uuid.UUID, email, name string, role Role) Principal {
	return Principal{Kind: KindOperator, OperatorID: id, Email: email, Name: name, Role: role}
}

func ForApplication(appID uuid.UUID) Principal {
	return Principal{Kind: KindApplication, ApplicationID: appID}
}

func (p Principal) IsOperator() bool { return p.Kind == KindOperator }

func (p Principal) IsAdmin() bool { return p.IsOperator() && p.Role == RoleAdmin }

// CanAccess reports whether the principal may read or mutate data owned by appID.
func (p Principal) CanAccess(appID uuid.UUID) bool {
	switch p.Kind {
	case KindOperator:
		return true
	case KindApplication:
		return p.ApplicationID == appID
	}
	return false
}

// SeesInternal reports whether internal comments may be shown to the principal.
func (p Principal) SeesInternal() bool { return p.IsOperator() }

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// LooksLikeJWT distinguishes operator session tokens from API keys, which
// never contain dots.
func LooksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}
