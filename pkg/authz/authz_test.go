package authz

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyyrose/toolgate/pkg/catalog"
)

func TestIdentity_HasPermission(t *testing.T) {
	id := Identity{ID: "u1", Permissions: []string{"orders:read", "orders:write"}}

	assert.True(t, id.HasPermission("orders:read"))
	assert.False(t, id.HasPermission("payments:write"))

	admin := Identity{ID: "root", Admin: true}
	assert.True(t, admin.HasPermission("anything:at:all"))
}

func TestGate_Check_Admits(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	spec := &catalog.Specification{
		Name:        "fetch_order",
		Permissions: []string{"orders:read"},
		RiskTier:    catalog.RiskReadOnly,
	}
	caller := Identity{ID: "u1", Permissions: []string{"orders:read"}}

	assert.NoError(t, gate.Check(spec, caller))
}

func TestGate_Check_MissingPermissions(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	spec := &catalog.Specification{
		Name:        "issue_refund",
		Permissions: []string{"payments:write", "orders:read"},
	}
	caller := Identity{ID: "u1", Permissions: []string{"orders:read"}}

	err := gate.Check(spec, caller)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, []string{"payments:write"}, authErr.Missing)
	assert.Equal(t, "authorization_error", authErr.Code())
}

func TestGate_Check_CollectsAllMissing(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	spec := &catalog.Specification{
		Name:        "wipe_account",
		Permissions: []string{"accounts:write", "accounts:delete"},
	}
	caller := Identity{ID: "u1"}

	err := gate.Check(spec, caller)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Len(t, authErr.Missing, 2)
}

func TestGate_Check_AdminBypassesPermissions(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	spec := &catalog.Specification{
		Name:        "issue_refund",
		Permissions: []string{"payments:write"},
	}

	assert.NoError(t, gate.Check(spec, Identity{ID: "root", Admin: true}))
}

func TestGate_Check_ApprovalRequired(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	tests := []struct {
		name     string
		tier     catalog.RiskTier
		approved bool
		wantErr  bool
	}{
		{name: "high without approval", tier: catalog.RiskHigh, wantErr: true},
		{name: "critical without approval", tier: catalog.RiskCritical, wantErr: true},
		{name: "high with approval", tier: catalog.RiskHigh, approved: true},
		{name: "medium without approval", tier: catalog.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &catalog.Specification{Name: "charge_card", RiskTier: tt.tier}
			caller := Identity{ID: "u1", Approved: tt.approved}

			err := gate.Check(spec, caller)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGate_Check_ApprovalIndependentOfPermissions(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	// Holding every listed permission does not substitute for approval.
	spec := &catalog.Specification{
		Name:        "delete_workspace",
		Permissions: []string{"workspaces:delete"},
		RiskTier:    catalog.RiskCritical,
	}
	caller := Identity{ID: "u1", Permissions: []string{"workspaces:delete"}}

	err := gate.Check(spec, caller)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Empty(t, authErr.Missing)
	assert.Contains(t, authErr.Reason, "approval")
}

func TestGate_Check_AllowedCallers(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	spec := &catalog.Specification{
		Name:           "rotate_keys",
		AllowedCallers: []string{"ops-agent"},
	}

	assert.NoError(t, gate.Check(spec, Identity{ID: "ops-agent"}))

	err := gate.Check(spec, Identity{ID: "intern", Admin: true})
	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "allowed-caller")
}
