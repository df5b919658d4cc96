package guard

import "github.com/google/uuid"

// Actor is a player identity as reported by the host, together with the
// permission nodes the host granted it.
type Actor struct {
	ID          uuid.UUID
	Name        string
	Permissions []string
}

func (a Actor) Can(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Authorizer is the host-side permission predicate consulted on breaks.
type Authorizer interface {
	IsPrivileged(a Actor) bool
	IsSuperUser(a Actor) bool
}

// FeedbackSink is told about every denied break. Implementations must not
// block and must swallow their own failures.
type FeedbackSink interface {
	NotifyDenied(a Actor, loc Location)
}

type FeedbackFunc func(a Actor, loc Location)

func (f FeedbackFunc) NotifyDenied(a Actor, loc Location) { f(a, loc) }

const DefaultBypassPermission = "unbreakable.bypass"

// PermissionAuthorizer grants bypass to actors holding BypassPermission and to
// a configured set of super-user ids.
type PermissionAuthorizer struct {
	BypassPermission string
	SuperUsers       map[uuid.UUID]struct{}
}

func NewPermissionAuthorizer(bypass string, superUsers []uuid.UUID) PermissionAuthorizer {
	if bypass == "" {
		bypass = DefaultBypassPermission
	}
	su := make(map[uuid.UUID]struct{}, len(superUsers))
	for _, id := range superUsers {
		su[id] = struct{}{}
	}
	return PermissionAuthorizer{BypassPermission: bypass, SuperUsers: su}
}

func (p PermissionAuthorizer) IsPrivileged(a Actor) bool { return a.Can(p.BypassPermission) }

func (p PermissionAuthorizer) IsSuperUser(a Actor) bool {
	_, ok := p.SuperUsers[a.ID]
	return ok
}
