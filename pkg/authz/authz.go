// Package authz enforces permission and risk-tier requirements before any
// tool call proceeds. The check is side-effect-free: it inspects the caller
// identity and the tool specification and either admits or rejects.
package authz

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/skyyrose/toolgate/pkg/catalog"
)

// Identity describes the caller on whose behalf an invocation runs
type Identity struct {
	ID          string
	Permissions []string
	Admin       bool
	Approved    bool // explicit approval for HIGH/CRITICAL risk tiers
}

// HasPermission reports whether the identity holds a permission. Admin and
// system identities satisfy every permission check.
func (id Identity) HasPermission(permission string) bool {
	if id.Admin {
		return true
	}
	for _, held := range id.Permissions {
		if held == permission {
			return true
		}
	}
	return false
}

// Error is an authorization rejection
type Error struct {
	Tool    string
	Missing []string // permissions the caller lacks
	Reason  string
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("caller not authorized for %s: missing permissions %s",
			e.Tool, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("caller not authorized for %s: %s", e.Tool, e.Reason)
}

// Code returns the machine-readable reason code
func (e *Error) Code() string {
	return "authorization_error"
}

// Gate performs the two-phase authorization check
type Gate struct {
	logger zerolog.Logger
}

// NewGate creates an authorization gate
func NewGate(logger zerolog.Logger) *Gate {
	return &Gate{logger: logger.With().Str("component", "authz").Logger()}
}

// Check admits or rejects a call. Phase one requires every permission the
// specification lists (admins always pass). Phase two requires an explicit
// approval flag for HIGH and CRITICAL risk tiers, independent of permissions
// held. The allowed-caller list, when non-empty, is enforced first.
func (g *Gate) Check(spec *catalog.Specification, caller Identity) error {
	if !spec.CallerAllowed(caller.ID) {
		g.logger.Warn().
			Str("tool", spec.Name).
			Str("caller", caller.ID).
			Msg("Caller not in allowed-caller list")
		return &Error{Tool: spec.Name, Reason: "caller not in allowed-caller list"}
	}

	missing := []string{}
	for _, required := range spec.Permissions {
		if !caller.HasPermission(required) {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		g.logger.Warn().
			Str("tool", spec.Name).
			Str("caller", caller.ID).
			Strs("missing", missing).
			Msg("Call rejected: missing permissions")
		return &Error{Tool: spec.Name, Missing: missing}
	}

	if spec.RiskTier.RequiresApproval() && !caller.Approved {
		g.logger.Warn().
			Str("tool", spec.Name).
			Str("caller", caller.ID).
			Str("risk_tier", string(spec.RiskTier)).
			Msg("Call rejected: approval required")
		return &Error{
			Tool:   spec.Name,
			Reason: fmt.Sprintf("risk tier %s requires explicit approval", spec.RiskTier),
		}
	}

	return nil
}
