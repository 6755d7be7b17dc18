package application

import "fmt"

// Resource names a kind of record guarded by the capability table.
type Resource string

// Action names an operation on a resource.
type Action string

// Role is the minimum standing required for a capability.
type Role int

const (
	ResourceSession  Resource = "session"
	ResourceBlackout Resource = "blackout"

	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionMarkHeld and ActionCancel change a session's terminal flags.
	ActionMarkHeld Action = "mark_held"
	ActionCancel   Action = "cancel"
	// ActionEditFinalized edits a held or cancelled session.
	ActionEditFinalized Action = "edit_finalized"
	// ActionEditOthers edits a session owned by someone else.
	ActionEditOthers Action = "edit_others"
)

const (
	RoleMember Role = iota
	RoleAdministrator
)

type capability struct {
	resource Resource
	action   Action
}

var capabilities = map[capability]Role{
	{ResourceSession, ActionCreate}:        RoleMember,
	{ResourceSession, ActionRead}:          RoleMember,
	{ResourceSession, ActionUpdate}:        RoleMember,
	{ResourceSession, ActionMarkHeld}:      RoleAdministrator,
	{ResourceSession, ActionCancel}:        RoleAdministrator,
	{ResourceSession, ActionEditFinalized}: RoleAdministrator,
	{ResourceSession, ActionEditOthers}:    RoleAdministrator,

	{ResourceBlackout, ActionRead}:   RoleMember,
	{ResourceBlackout, ActionCreate}: RoleAdministrator,
	{ResourceBlackout, ActionUpdate}: RoleAdministrator,
	{ResourceBlackout, ActionDelete}: RoleAdministrator,
}

func (r Requester) role() Role {
	if r.IsAdmin {
		return RoleAdministrator
	}
	return RoleMember
}

// Authorize checks the requester against the capability table. Unknown
// capabilities and anonymous requesters are always refused.
func Authorize(requester Requester, resource Resource, action Action) error {
	if requester.ID == "" {
		return ErrUnauthorized
	}
	required, ok := capabilities[capability{resource, action}]
	if !ok {
		return fmt.Errorf("%w: unknown capability %s:%s", ErrUnauthorized, resource, action)
	}
	if requester.role() < required {
		return fmt.Errorf("%w: %s %s requires administrator", ErrUnauthorized, action, resource)
	}
	return nil
}
