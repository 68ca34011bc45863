package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	_ "github.com/mealdesk/mealdesk-console/testing"
)

func adminPrincipal() *authz.Principal {
	return &authz.Principal{
		ID:          42,
		DisplayName: "Dapur Admin",
		Email:       "admin@outlet.test",
		Role:        authz.RoleAdmin,
		Outlets: []authz.OutletGrant{
			{
				OutletID: 5,
				Outlet:   authz.Outlet{Name: "North Court", IsActive: true},
				Permissions: []authz.Permission{
					{Type: authz.PermInventoryManagement, IsGranted: true},
					{Type: authz.PermOrderManagement, IsGranted: false},
				},
			},
			{
				OutletID: 7,
				Outlet:   authz.Outlet{Name: "South Court", IsActive: true},
				Permissions: []authz.Permission{
					{Type: authz.PermWalletManagement, IsGranted: true},
				},
			},
		},
	}
}

func TestHasPermissionRequiresContext(t *testing.T) {
	p := adminPrincipal()
	for _, perm := range authz.PermissionTypes() {
		assert.False(t, authz.HasPermission(p, 0, perm), "no outlet selected must deny %s", perm)
		assert.False(t, authz.HasPermission(nil, 5, perm), "nil principal must deny %s", perm)
	}
}

func TestHasPermissionGrantFidelity(t *testing.T) {
	p := adminPrincipal()

	assert.True(t, authz.HasPermission(p, 5, authz.PermInventoryManagement))
	// Explicit isGranted:false entry.
	assert.False(t, authz.HasPermission(p, 5, authz.PermOrderManagement))
	// Absent entry reads as not granted, not as an error.
	assert.False(t, authz.HasPermission(p, 5, authz.PermWalletManagement))
	// Grants are outlet-scoped.
	assert.True(t, authz.HasPermission(p, 7, authz.PermWalletManagement))
	assert.False(t, authz.HasPermission(p, 7, authz.PermInventoryManagement))
	// Unknown outlet id.
	assert.False(t, authz.HasPermission(p, 99, authz.PermInventoryManagement))
}

func TestHasPermissionIgnoresSuperadminRole(t *testing.T) {
	p := adminPrincipal()
	p.Role = authz.RoleSuperadmin
	// Role bypass belongs to the guard layer, not the resolver.
	assert.False(t, authz.HasPermission(p, 5, authz.PermWalletManagement))
}

func TestAccessibleRoutesFiltersAndKeepsOrder(t *testing.T) {
	p := adminPrincipal()
	routes := authz.AccessibleRoutes(p, 5)

	require.Len(t, routes, 2)
	assert.Equal(t, "Home", routes[0].Name)
	assert.Equal(t, "Inventory", routes[1].Name)

	names := make([]string, 0, len(routes))
	for _, r := range routes {
		names = append(names, r.Name)
	}
	assert.NotContains(t, names, "Wallets")
}

func TestAccessibleRoutesStable(t *testing.T) {
	p := adminPrincipal()
	first := authz.AccessibleRoutes(p, 7)
	second := authz.AccessibleRoutes(p, 7)
	assert.Equal(t, first, second)
}

func TestAccessibleRoutesAnonymous(t *testing.T) {
	routes := authz.AccessibleRoutes(nil, 0)
	require.Len(t, routes, 1)
	assert.Equal(t, "/", routes[0].Path)
}

func TestRoutesReturnsCopy(t *testing.T) {
	routes := authz.Routes()
	routes[0].Name = "mutated"
	assert.Equal(t, "Home", authz.Routes()[0].Name)
}
