package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/tenancy/internal/app"
	iauth "github.com/charlesng35/tenancy/internal/auth"
	"github.com/charlesng35/tenancy/internal/services"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Auditor evaluates the security posture of a running deployment: token
// verification settings, audit retention and organization admin integrity.
type Auditor struct {
	store *services.MembershipStore
	jwt   *iauth.JWTService
	cfg   *app.Config
	now   func() time.Time
}

// NewAuditor constructs the auditor. All dependencies are optional; missing
// inputs degrade specific checks to warnings.
func NewAuditor(store *services.MembershipStore, jwt *iauth.JWTService, cfg *app.Config) *Auditor {
	return &Auditor{
		store: store,
		jwt:   jwt,
		cfg:   cfg,
		now:   time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (a *Auditor) WithClock(clock func() time.Time) {
	if clock != nil {
		a.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (a *Auditor) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		a.checkAdminIntegrity(ctx),
		a.checkJWTSecret(),
		a.checkTokenScope(),
		a.checkAuditRetention(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}

	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: a.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (a *Auditor) checkAdminIntegrity(ctx context.Context) Check {
	if a.store == nil {
		return Check{
			ID:          "organization_admins",
			Status:      StatusWarn,
			Message:     "Membership store unavailable; unable to confirm every organization has an admin.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	orgIDs, err := a.store.OrganizationsWithoutAdmins(ctx)
	if err != nil {
		return Check{
			ID:          "organization_admins",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not verify organization admins: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if len(orgIDs) > 0 {
		return Check{
			ID:          "organization_admins",
			Status:      StatusFail,
			Message:     fmt.Sprintf("%d organization(s) have members but no admin.", len(orgIDs)),
			Remediation: "Promote a member to ADMIN directly in the database for each listed organization.",
			Details:     map[string]any{"organization_ids": orgIDs},
		}
	}

	return Check{
		ID:      "organization_admins",
		Status:  StatusPass,
		Message: "Every organization with members has an admin.",
	}
}

func (a *Auditor) checkJWTSecret() Check {
	if a.jwt == nil {
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     "JWT service not initialised; unable to assess signing secret strength.",
			Remediation: "Initialise the JWT service with a strong secret.",
		}
	}

	length := a.jwt.SecretLength()

	switch {
	case length == 0:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Provide the identity provider's signing secret (>= 32 bytes).",
		}
	case length < 32:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < 48:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase the length of TENANCY_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      "jwt_secret_strength",
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (a *Auditor) checkTokenScope() Check {
	if a.cfg == nil {
		return Check{
			ID:          "jwt_token_scope",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to verify token issuer and audience.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	var missing []string
	if strings.TrimSpace(a.cfg.Auth.JWT.Issuer) == "" {
		missing = append(missing, "issuer")
	}
	if strings.TrimSpace(a.cfg.Auth.JWT.Audience) == "" {
		missing = append(missing, "audience")
	}

	if len(missing) > 0 {
		return Check{
			ID:          "jwt_token_scope",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Tokens are accepted without checking %s.", strings.Join(missing, " or ")),
			Remediation: "Set auth.jwt.issuer and auth.jwt.audience to the identity provider's values.",
			Details:     map[string]any{"missing": missing},
		}
	}

	return Check{
		ID:      "jwt_token_scope",
		Status:  StatusPass,
		Message: "Token issuer and audience are enforced.",
	}
}

func (a *Auditor) checkAuditRetention() Check {
	if a.cfg == nil {
		return Check{
			ID:          "audit_retention",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to evaluate audit retention.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	days := a.cfg.Audit.RetentionDays
	if days <= 0 {
		return Check{
			ID:          "audit_retention",
			Status:      StatusWarn,
			Message:     "Audit retention is disabled; the audit log grows without bound.",
			Remediation: "Set audit.retention_days to a positive number of days.",
		}
	}

	const minRecommended = 30
	if days < minRecommended {
		return Check{
			ID:          "audit_retention",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Audit logs are kept for %d days, below the recommended %d.", days, minRecommended),
			Remediation: "Increase audit.retention_days to keep membership history available for review.",
			Details:     map[string]any{"retention_days": days},
		}
	}

	return Check{
		ID:      "audit_retention",
		Status:  StatusPass,
		Message: fmt.Sprintf("Audit logs are kept for %d days.", days),
		Details: map[string]any{"retention_days": days},
	}
}
