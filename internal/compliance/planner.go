package compliance

import (
	"fmt"
	"time"

	"vendorwatch/internal/vendors/models"
	id "vendorwatch/pkg/domain"
)

type DecisionKind string

const (
	DecisionNoAction        DecisionKind = "NO_ACTION"
	DecisionSetNeedsRenewal DecisionKind = "SET_NEEDS_RENEWAL"
	DecisionNotifyExpiring  DecisionKind = "NOTIFY_EXPIRING"
)

// ClassifiedDocument pairs a document with its classification for the run.
type ClassifiedDocument struct {
	Document models.ExpiringDocument
	State    ExpiryState
}

// Decision is the planner's single outcome for one vendor in one run.
//   - SET_NEEDS_RENEWAL carries Reason and Offender.
//   - NOTIFY_EXPIRING carries every expiring document in Expiring.
//   - NO_ACTION carries nothing.
type Decision struct {
	Kind     DecisionKind
	VendorID id.VendorID
	Reason   string
	Offender *models.ExpiringDocument
	Expiring []models.ExpiringDocument
}

// Plan reduces the classified documents of one vendor into a decision. The
// first expired document in evaluation order names the reason.
func Plan(status models.VendorStatus, docs []ClassifiedDocument, loc *time.Location) Decision {
	var (
		vendorID id.VendorID
		expiring []models.ExpiringDocument
	)
	for i := range docs {
		doc := docs[i].Document
		vendorID = doc.VendorID
		switch docs[i].State {
		case ExpiryExpired:
			if !status.CanAutoRenew() {
				return Decision{Kind: DecisionNoAction, VendorID: vendorID}
			}
			return Decision{
				Kind:     DecisionSetNeedsRenewal,
				VendorID: vendorID,
				Reason:   RenewalReason(doc, loc),
				Offender: &doc,
			}
		case ExpiryExpiringSoon:
			expiring = append(expiring, doc)
		}
	}

	if len(expiring) > 0 && status.ReceivesReminders() {
		return Decision{Kind: DecisionNotifyExpiring, VendorID: vendorID, Expiring: expiring}
	}
	return Decision{Kind: DecisionNoAction, VendorID: vendorID}
}

// RenewalReason is stored in the vendor's review notes and the audit entry.
func RenewalReason(doc models.ExpiringDocument, loc *time.Location) string {
	return fmt.Sprintf("Mandatory document %s expired on %s", doc.DocType.Label(), formatDate(doc.ExpiryDate, loc))
}

func formatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02")
}
