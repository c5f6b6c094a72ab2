package compliance

import (
	"fmt"
	"strings"
	"time"

	"vendorwatch/internal/notify"
	"vendorwatch/internal/vendors/models"
	"vendorwatch/pkg/email"
)

const signature = "Vendor Compliance Team"

// ExpiringReminder is sent once per expiring-soon document.
func ExpiringReminder(doc models.ExpiringDocument, loc *time.Location) notify.Message {
	label := doc.DocType.Label()
	expires := formatDate(doc.ExpiryDate, loc)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", salutation(doc.VendorName, doc.VendorEmail))
	fmt.Fprintf(&b, "Your %s", label)
	if doc.FileName != "" {
		fmt.Fprintf(&b, " (%s)", doc.FileName)
	}
	fmt.Fprintf(&b, " expires on %s.\n", expires)
	b.WriteString("Please upload a renewed document before that date to keep your vendor account active.\n\n")
	b.WriteString(signature + "\n")

	return notify.Message{
		To:      doc.VendorEmail,
		Subject: fmt.Sprintf("Reminder: %s expires on %s", label, expires),
		Body:    b.String(),
	}
}

// BlockedNotice tells a vendor their account moved to NEEDS_RENEWAL.
func BlockedNotice(name, address, reason string) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", salutation(name, address))
	fmt.Fprintf(&b, "Your vendor account has been temporarily blocked and its status is now %s.\n", models.VendorStatusNeedsRenewal)
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString("Upload the renewed document to restore your account. A reviewer will confirm it shortly after.\n\n")
	b.WriteString(signature + "\n")

	return notify.Message{
		To:      address,
		Subject: "Action required: your vendor account is temporarily blocked",
		Body:    b.String(),
	}
}

// SLADigest lists every vendor submission waiting past the review SLA.
func SLADigest(reviewer *models.Reviewer, vendors []*models.Vendor, sla time.Duration, loc *time.Location) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", salutation(reviewer.Name, reviewer.Email))
	fmt.Fprintf(&b, "%d vendor submission(s) have been waiting for review longer than %s:\n\n", len(vendors), formatSLA(sla))
	for _, v := range vendors {
		fmt.Fprintf(&b, "- %s (%s), submitted %s\n", v.Name, v.ID, formatDate(v.CreatedAt, loc))
	}
	b.WriteString("\nPlease review them as soon as possible.\n\n")
	b.WriteString(signature + "\n")

	return notify.Message{
		To:      reviewer.Email,
		Subject: fmt.Sprintf("SLA breach: %d vendor submission(s) awaiting review", len(vendors)),
		Body:    b.String(),
	}
}

// salutation falls back to a name derived from the address, then to a
// generic greeting.
func salutation(name, address string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if n := email.DisplayName(address); n != "" {
		return n
	}
	return "there"
}

func formatSLA(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%g hours", d.Hours())
}
