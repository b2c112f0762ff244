package domain

import "fmt"

// Role is the two-valued workflow role held by a session.
type Role string

const (
	RoleAnalyst  Role = "Analyst"
	RoleReviewer Role = "Reviewer"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAnalyst, RoleReviewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, s)
}

// CanGenerate reports whether the role may generate a narrative draft.
func CanGenerate(r Role) bool { return r == RoleAnalyst }

// CanReview reports whether the role may approve or reject a submission.
func CanReview(r Role) bool { return r == RoleReviewer }
