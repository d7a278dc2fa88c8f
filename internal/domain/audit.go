package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names a security or administration event
type AuditAction string

const (
	AuditLoginSuccess         AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailed          AuditAction = "LOGIN_FAILED"
	AuditLoginBlocked         AuditAction = "LOGIN_BLOCKED"
	AuditLogout               AuditAction = "LOGOUT"
	AuditPasswordChanged      AuditAction = "PASSWORD_CHANGED"
	AuditSSOTokenIssued       AuditAction = "SSO_TOKEN_ISSUED"
	AuditSSOTokenValidated    AuditAction = "SSO_TOKEN_VALIDATED"
	AuditSSOTokenRejected     AuditAction = "SSO_TOKEN_REJECTED"
	AuditAccessDenied         AuditAction = "ACCESS_DENIED"
	AuditTenantCreated        AuditAction = "TENANT_CREATED"
	AuditTenantUpdated        AuditAction = "TENANT_UPDATED"
	AuditTenantDeleted        AuditAction = "TENANT_DELETED"
	AuditPlanCreated          AuditAction = "PLAN_CREATED"
	AuditPlanUpdated          AuditAction = "PLAN_UPDATED"
	AuditPlanDeleted          AuditAction = "PLAN_DELETED"
	AuditProductCreated       AuditAction = "PRODUCT_CREATED"
	AuditProductUpdated       AuditAction = "PRODUCT_UPDATED"
	AuditProductDeactivated   AuditAction = "PRODUCT_DEACTIVATED"
	AuditTenantProductUpdated AuditAction = "TENANT_PRODUCT_UPDATED"
	AuditTenantProductRemoved AuditAction = "TENANT_PRODUCT_REMOVED"
	AuditTenantProductsSynced AuditAction = "TENANT_PRODUCTS_SYNCED"
	AuditUserCreated          AuditAction = "USER_CREATED"
	AuditUserUpdated          AuditAction = "USER_UPDATED"
	AuditUserDeactivated      AuditAction = "USER_DEACTIVATED"
	AuditSuperAdminCreated    AuditAction = "SUPER_ADMIN_CREATED"
)

// AuditLog is an append-only event record
type AuditLog struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Action    AuditAction `json:"action" db:"action"`
	Resource  *string     `json:"resource,omitempty" db:"resource"` // "type:id"
	Details   JSONMap     `json:"details" db:"details"`
	UserID    *uuid.UUID  `json:"userId,omitempty" db:"user_id"`     // NULL = system
	TenantID  *uuid.UUID  `json:"tenantId,omitempty" db:"tenant_id"` // NULL = global
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// Resource formats a "type:id" audit resource reference
func Resource(kind string, id uuid.UUID) *string {
	r := kind + ":" + id.String()
	return &r
}
