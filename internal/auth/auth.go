// Package auth resolves who is calling. A caller is either the company owner,
// with unrestricted access, or an employee scoped by role and permissions.
package auth

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrForbidden    = errors.New("permission denied")
)

type Kind string

const (
	KindOwner    Kind = "owner"
	KindEmployee Kind = "employee"
)

const (
	PermFinanceView   = "finance:view"
	PermFinanceManage = "finance:manage"
	permAll           = "*"
)

type EmployeeScope struct {
	CompanyID   uuid.UUID
	Role        string
	Department  string
	Permissions []string
}

// Caller is the identity behind a request. Scope is set only for employees.
type Caller struct {
	Kind   Kind
	UserID uuid.UUID
	Scope  *EmployeeScope
}

func Owner(userID uuid.UUID) Caller {
	return Caller{Kind: KindOwner, UserID: userID}
}

func Employee(userID uuid.UUID, scope EmployeeScope) Caller {
	return Caller{Kind: KindEmployee, UserID: userID, Scope: &scope}
}

// Can reports whether the caller holds permission. Owners hold every permission.
func (c Caller) Can(permission string) bool {
	switch c.Kind {
	case KindOwner:
		return true
	case KindEmployee:
		if c.Scope == nil {
			return false
		}

		return slices.Contains(c.Scope.Permissions, permission) || slices.Contains(c.Scope.Permissions, permAll)
	default:
		return false
	}
}

type callerKey struct{}

type companyKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

func WithCompany(ctx context.Context, companyID uuid.UUID) context.Context {
	return context.WithValue(ctx, companyKey{}, companyID)
}

// CompanyFrom returns the company resolved for the request.
func CompanyFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(companyKey{}).(uuid.UUID)
	return id, ok
}
