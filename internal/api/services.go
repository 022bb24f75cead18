package api

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/services"
)

// Services bundles the long-lived domain services shared by the router and
// background jobs.
type Services struct {
	Audit         *services.AuditService
	Store         *services.MembershipStore
	Gate          *services.AuthorizationService
	Memberships   *services.MembershipService
	Organizations *services.OrganizationService
	Users         *services.UserService
}

// NewServices wires the domain services over db.
func NewServices(db *gorm.DB) (*Services, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}
	store, err := services.NewMembershipStore(db)
	if err != nil {
		return nil, fmt.Errorf("membership store: %w", err)
	}
	gate, err := services.NewAuthorizationService(store)
	if err != nil {
		return nil, fmt.Errorf("authorization service: %w", err)
	}
	memberships, err := services.NewMembershipService(db, gate, audit)
	if err != nil {
		return nil, fmt.Errorf("membership service: %w", err)
	}
	orgs, err := services.NewOrganizationService(db, gate, audit)
	if err != nil {
		return nil, fmt.Errorf("organization service: %w", err)
	}
	users, err := services.NewUserService(db, audit)
	if err != nil {
		return nil, fmt.Errorf("user service: %w", err)
	}

	return &Services{
		Audit:         audit,
		Store:         store,
		Gate:          gate,
		Memberships:   memberships,
		Organizations: orgs,
		Users:         users,
	}, nil
}
