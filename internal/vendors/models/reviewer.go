package models

import (
	"time"

	id "vendorwatch/pkg/domain"
)

type Role string

const (
	RoleReviewer Role = "REVIEWER"
	RoleAdmin    Role = "ADMIN"
	RoleVendor   Role = "VENDOR"
)

// Reviewer is an internal user who can act on pending vendor reviews.
type Reviewer struct {
	ID        id.UserID
	Name      string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
}
