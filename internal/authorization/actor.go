package authorization

import (
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleChiefPurchaser Role = "chief_purchaser"
	RolePurchaser      Role = "purchaser"
)

func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RoleAdmin, RoleChiefPurchaser, RolePurchaser:
		return role, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) subject() string {
	return "role:" + string(r)
}

// ScopeSet is the organizations and cities a purchaser profile grants.
type ScopeSet struct {
	organizations []snowflake.ID
	cities        []snowflake.ID
}

func NewScopeSet(organizations, cities []snowflake.ID) *ScopeSet {
	return &ScopeSet{
		organizations: dedupe(organizations),
		cities:        dedupe(cities),
	}
}

func (s *ScopeSet) Organizations() []snowflake.ID {
	if s == nil {
		return nil
	}
	return slices.Clone(s.organizations)
}

func (s *ScopeSet) Cities() []snowflake.ID {
	if s == nil {
		return nil
	}
	return slices.Clone(s.cities)
}

func (s *ScopeSet) HasOrganization(id snowflake.ID) bool {
	return s != nil && slices.Contains(s.organizations, id)
}

// Actor is the authenticated caller. Scope is nil for admins and for
// purchasers without a profile.
type Actor struct {
	UserID snowflake.ID
	Role   Role
	Scope  *ScopeSet
}

func (a Actor) Authenticated() bool {
	if a.UserID == 0 {
		return false
	}
	_, err := ParseRole(string(a.Role))
	return err == nil
}

func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == RoleAdmin
}

func dedupe(ids []snowflake.ID) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// RequireActor fails closed for anonymous or malformed actors.
func RequireActor(actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}
