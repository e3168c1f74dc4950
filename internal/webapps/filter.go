package webapps

// Visible computes the subset of the catalog visible to a caller holding the
// given role names. An application is visible iff the intersection of the
// caller's roles and the application's required roles is non-empty; an empty
// required-role set makes the application visible to nobody. Catalog order is
// preserved, so equal inputs always yield equal output.
func Visible(roleNames []string, catalog []WebApp) []WebApp {
	callerRoles := make(map[string]struct{}, len(roleNames))
	for _, name := range roleNames {
		callerRoles[name] = struct{}{}
	}

	visible := make([]WebApp, 0, len(catalog))
	for _, app := range catalog {
		for _, required := range app.RequiredRoles {
			if _, ok := callerRoles[required]; ok {
				visible = append(visible, app)
				break
			}
		}
	}
	return visible
}
