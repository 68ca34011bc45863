package authz

// Role classifies the authenticated actor for this console.
type Role string

const (
	// RoleAdmin is an outlet-scoped administrator.
	RoleAdmin Role = "ADMIN"
	// RoleSuperadmin is a platform operator; not outlet-scoped by default.
	RoleSuperadmin Role = "SUPERADMIN"
)

// PermissionType is one enumerated capability grantable per outlet.
// The set is closed; unknown values are never granted.
type PermissionType string

const (
	PermOrderManagement         PermissionType = "ORDER_MANAGEMENT"
	PermStaffManagement         PermissionType = "STAFF_MANAGEMENT"
	PermInventoryManagement     PermissionType = "INVENTORY_MANAGEMENT"
	PermExpenditureManagement   PermissionType = "EXPENDITURE_MANAGEMENT"
	PermWalletManagement        PermissionType = "WALLET_MANAGEMENT"
	PermCustomerManagement      PermissionType = "CUSTOMER_MANAGEMENT"
	PermTicketManagement        PermissionType = "TICKET_MANAGEMENT"
	PermNotificationsManagement PermissionType = "NOTIFICATIONS_MANAGEMENT"
	PermProductManagement       PermissionType = "PRODUCT_MANAGEMENT"
	PermAppManagement           PermissionType = "APP_MANAGEMENT"
	PermReportsAnalytics        PermissionType = "REPORTS_ANALYTICS"
	PermSettings                PermissionType = "SETTINGS"
)

// PermissionTypes lists every known permission type.
func PermissionTypes() []PermissionType {
	return []PermissionType{
		PermOrderManagement,
		PermStaffManagement,
		PermInventoryManagement,
		PermExpenditureManagement,
		PermWalletManagement,
		PermCustomerManagement,
		PermTicketManagement,
		PermNotificationsManagement,
		PermProductManagement,
		PermAppManagement,
		PermReportsAnalytics,
		PermSettings,
	}
}

// Permission is one capability entry inside an outlet grant. A missing
// entry is equivalent to IsGranted == false.
type Permission struct {
	Type      PermissionType `json:"type"`
	IsGranted bool           `json:"isGranted"`
}

// Outlet carries denormalized display info for a tenant location.
type Outlet struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"isActive"`
}

// OutletGrant binds a principal to one outlet with its permission set.
// OutletID is unique within one principal's grant list.
type OutletGrant struct {
	OutletID    int64        `json:"outletId"`
	Outlet      Outlet       `json:"outlet"`
	Permissions []Permission `json:"permissions"`
}

// Granted reports whether the grant carries an explicit, granted entry
// for the given permission type.
func (g OutletGrant) Granted(t PermissionType) bool {
	for _, p := range g.Permissions {
		if p.Type == t {
			return p.IsGranted
		}
	}
	return false
}

// Principal is the authenticated identity for an admin or superadmin
// session. It is replaced wholesale on re-authentication and cleared on
// sign-out.
type Principal struct {
	ID          int64         `json:"id"`
	DisplayName string        `json:"displayName"`
	Email       string        `json:"email"`
	Role        Role          `json:"role"`
	Outlets     []OutletGrant `json:"outlets"`
}

// Grant returns the outlet grant matching id, if any.
func (p *Principal) Grant(outletID int64) (OutletGrant, bool) {
	if p == nil {
		return OutletGrant{}, false
	}
	for _, g := range p.Outlets {
		if g.OutletID == outletID {
			return g, true
		}
	}
	return OutletGrant{}, false
}

// HasOutlet reports whether the principal holds a grant for the outlet.
func (p *Principal) HasOutlet(outletID int64) bool {
	_, ok := p.Grant(outletID)
	return ok
}

// IsSuperadmin reports whether administrative-only branches are
// implicitly open to this principal. Checked via role, never via the
// permission list.
func (p *Principal) IsSuperadmin() bool {
	return p != nil && p.Role == RoleSuperadmin
}
