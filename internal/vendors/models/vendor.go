package models

import (
	"time"

	id "vendorwatch/pkg/domain"
)

// VendorStatus is the qualification lifecycle state of a vendor.
type VendorStatus string

const (
	VendorStatusNew          VendorStatus = "NEW"
	VendorStatusUnderReview  VendorStatus = "UNDER_REVIEW"
	VendorStatusActive       VendorStatus = "ACTIVE"
	VendorStatusApproved     VendorStatus = "APPROVED"
	VendorStatusNeedsRenewal VendorStatus = "NEEDS_RENEWAL"
	VendorStatusRejected     VendorStatus = "REJECTED"
)

func (s VendorStatus) IsValid() bool {
	switch s {
	case VendorStatusNew, VendorStatusUnderReview, VendorStatusActive,
		VendorStatusApproved, VendorStatusNeedsRenewal, VendorStatusRejected:
		return true
	}
	return false
}

// CanAutoRenew reports whether the engine may move a vendor in this status to
// NEEDS_RENEWAL. Vendors already blocked are left alone so repeated runs do
// not produce repeated transitions; rejected vendors are terminal.
func (s VendorStatus) CanAutoRenew() bool {
	return s.IsValid() && s != VendorStatusNeedsRenewal && s != VendorStatusRejected
}

// ReceivesReminders reports whether expiring-soon reminders are sent to a
// vendor in this status.
func (s VendorStatus) ReceivesReminders() bool {
	return s.CanAutoRenew()
}

// Vendor is owned by the onboarding flow. The compliance engine only reads it
// and conditionally updates Status, ReviewNotes and UpdatedAt.
type Vendor struct {
	ID          id.VendorID  `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Status      VendorStatus `json:"status"`
	ReviewNotes string       `json:"review_notes"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// StatusTransition is a conditional status update: it applies only while the
// vendor is still in From.
type StatusTransition struct {
	VendorID    id.VendorID
	From        VendorStatus
	To          VendorStatus
	ReviewNotes string
	UpdatedAt   time.Time
}

// Apply mutates v according to t. Callers check From themselves.
func (t StatusTransition) Apply(v *Vendor) {
	v.Status = t.To
	v.ReviewNotes = t.ReviewNotes
	v.UpdatedAt = t.UpdatedAt
}
