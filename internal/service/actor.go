package service

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Actor identifies the authenticated caller of a core operation. The
// authentication layer builds it from the verified JWT; services only
// enforce role/ownership rules against it.
type Actor struct {
	ID   uuid.UUID
	Role string // ADMIN, INTERNAL, PORTAL
}

// IsStaff reports whether the actor may use the administrative transition
// table and see documents across customers.
func (a Actor) IsStaff() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleInternal
}

// BillingEventPublisher pushes billing events to connected clients. The
// websocket hub satisfies this; services treat it as optional.
type BillingEventPublisher interface {
	Publish(event string, data map[string]interface{})
}
