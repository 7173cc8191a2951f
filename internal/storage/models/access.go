package models

// Access is the capability a caller presents when operating on a property.
// Handlers build it from the authenticated host; internal jobs and the CLI
// use SystemAccess. Ownership checks always receive it explicitly rather
// than consulting ambient state.
type Access struct {
	HostID string
	Admin  bool
}

// SystemAccess returns the capability used by the scheduler and ops tooling.
func SystemAccess() Access {
	return Access{Admin: true}
}

// CanManage reports whether this capability may operate on a property
// owned by the given host.
func (a Access) CanManage(hostID string) bool {
	return a.Admin || (a.HostID != "" && a.HostID == hostID)
}
