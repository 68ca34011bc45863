package authz

// HasPermission reports whether the principal holds an explicit grant
// for t at the given outlet. It is pure: no principal, no outlet, no
// matching grant or no granted entry all resolve to false, never an
// error. Superadmin role does not short-circuit here; role-based
// bypasses belong to the guard layer.
func HasPermission(p *Principal, outletID int64, t PermissionType) bool {
	if p == nil || outletID == 0 {
		return false
	}
	grant, ok := p.Grant(outletID)
	if !ok {
		return false
	}
	return grant.Granted(t)
}

// AccessibleRoutes filters the route table, keeping every route without
// a required permission plus every route whose requirement the
// principal satisfies at the given outlet. Declaration order is
// preserved.
func AccessibleRoutes(p *Principal, outletID int64) []Route {
	routes := make([]Route, 0, len(routeTable))
	for _, r := range routeTable {
		if r.RequiredPermission == "" || HasPermission(p, outletID, r.RequiredPermission) {
			routes = append(routes, r)
		}
	}
	return routes
}
