package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles known to the back office.
type Role string

const (
	RoleTaquillera    Role = "taquillera"
	RoleEncargada     Role = "encargada"
	RoleAdministrador Role = "administrador"
)

// ParseRole rejects anything outside the known roles.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleTaquillera:
		return RoleTaquillera, nil
	case RoleEncargada:
		return RoleEncargada, nil
	case RoleAdministrador:
		return RoleAdministrador, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// CanReview reports whether the role may approve or reject cuadres.
func (r Role) CanReview() bool {
	return r == RoleEncargada || r == RoleAdministrador
}

// CanManage reports whether the role may manage users and commission rates.
func (r Role) CanManage() bool {
	return r == RoleAdministrador
}

// DashboardKind selects which dashboard a role sees.
type DashboardKind string

const (
	DashboardCashier    DashboardKind = "cashier"
	DashboardSupervisor DashboardKind = "supervisor"
	DashboardAdmin      DashboardKind = "admin"
)

// DashboardFor maps every role to its dashboard. Unknown roles are an error.
func DashboardFor(role Role) (DashboardKind, error) {
	switch role {
	case RoleTaquillera:
		return DashboardCashier, nil
	case RoleEncargada:
		return DashboardSupervisor, nil
	case RoleAdministrador:
		return DashboardAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID   string
	Role     Role
	AgencyID string
}
