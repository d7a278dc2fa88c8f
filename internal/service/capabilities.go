package service

import (
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

// Capabilities tells what an actor may do with a record of a target tenant
type Capabilities struct {
	CanView   bool `json:"canView"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// ResolveCapabilities is the one place role x tenant permissions are derived.
// A nil targetTenant is a global record.
func ResolveCapabilities(role domain.Role, actorTenant, targetTenant *uuid.UUID) Capabilities {
	if role == domain.RoleSuperAdmin {
		return Capabilities{CanView: true, CanEdit: true, CanDelete: true}
	}
	if actorTenant == nil || targetTenant == nil || *actorTenant != *targetTenant {
		return Capabilities{}
	}

	switch role {
	case domain.RoleAdmin:
		return Capabilities{CanView: true, CanEdit: true, CanDelete: true}
	case domain.RoleUser:
		return Capabilities{CanView: true}
	}
	return Capabilities{}
}
