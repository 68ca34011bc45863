package authz

// Route describes one navigable console section. RequiredPermission is
// empty for routes open to any authenticated principal.
type Route struct {
	Name               string
	Path               string
	RequiredPermission PermissionType
}

// routeTable is the single declaration of the console's sections. Both
// the navigation partial and the route guards consume this table; order
// here is the order everywhere.
var routeTable = []Route{
	{Name: "Home", Path: "/"},
	{Name: "Orders", Path: "/orders", RequiredPermission: PermOrderManagement},
	{Name: "Staff", Path: "/staff", RequiredPermission: PermStaffManagement},
	{Name: "Inventory", Path: "/inventory", RequiredPermission: PermInventoryManagement},
	{Name: "Expenditure", Path: "/expenditure", RequiredPermission: PermExpenditureManagement},
	{Name: "Wallets", Path: "/wallets", RequiredPermission: PermWalletManagement},
	{Name: "Customers", Path: "/customers", RequiredPermission: PermCustomerManagement},
	{Name: "Tickets", Path: "/tickets", RequiredPermission: PermTicketManagement},
	{Name: "Notifications", Path: "/notifications", RequiredPermission: PermNotificationsManagement},
	{Name: "Products", Path: "/products", RequiredPermission: PermProductManagement},
	{Name: "Mobile App", Path: "/app", RequiredPermission: PermAppManagement},
	{Name: "Reports", Path: "/reports", RequiredPermission: PermReportsAnalytics},
	{Name: "Settings", Path: "/settings", RequiredPermission: PermSettings},
}

// Routes returns the full route table in declaration order.
func Routes() []Route {
	out := make([]Route, len(routeTable))
	copy(out, routeTable)
	return out
}
