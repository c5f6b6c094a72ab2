package compliance

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"vendorwatch/internal/notify"
	"vendorwatch/internal/vendors/models"
	id "vendorwatch/pkg/domain"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func render(msg notify.Message) []byte {
	return []byte(fmt.Sprintf("To: %s\nSubject: %s\n\n%s", msg.To, msg.Subject, msg.Body))
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestExpiringReminderGolden(t *testing.T) {
	doc := models.ExpiringDocument{
		DocumentID:   id.DocumentID(uuid.MustParse("6f1c2d9e-4b7a-4c1e-9a53-2f0d8b1e7c44")),
		DocType:      models.DocTypeQualityCertification,
		ExpiryDate:   time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		FileName:     "iso9001.pdf",
		VendorName:   "Contoso Fabrication",
		VendorEmail:  "quality@contoso.example",
		VendorStatus: models.VendorStatusActive,
	}
	newGoldie(t).Assert(t, "expiring_reminder", render(ExpiringReminder(doc, ist)))
}

func TestBlockedNoticeGolden(t *testing.T) {
	msg := BlockedNotice("Northwind Traders", "compliance@northwind.example",
		"Mandatory document Insurance Certificate expired on 2026-03-09")
	newGoldie(t).Assert(t, "blocked_notice", render(msg))
}

func TestSLADigestGolden(t *testing.T) {
	reviewer := &models.Reviewer{Name: "Priya Raman", Email: "reviews@vendorwatch.example"}
	vendors := []*models.Vendor{
		{
			ID:        id.VendorID(uuid.MustParse("0b8f6a52-3e1d-4f7a-8c2b-5d9e1a7f3c10")),
			Name:      "Tailspin Components",
			CreatedAt: time.Date(2026, 3, 6, 20, 0, 0, 0, time.UTC),
		},
		{
			ID:        id.VendorID(uuid.MustParse("9d2e4c61-7a3b-4e5f-b1c8-0f6a2d8e4b97")),
			Name:      "Wide World Importers",
			CreatedAt: time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC),
		},
	}
	newGoldie(t).Assert(t, "sla_digest", render(SLADigest(reviewer, vendors, 48*time.Hour, ist)))
}

func TestSalutationFallsBackToAddress(t *testing.T) {
	msg := BlockedNotice("", "priya.raman@northwind.example", "Mandatory document Tax Registration expired on 2025-02-28")
	assert.True(t, strings.HasPrefix(msg.Body, "Hello Priya Raman,\n"))

	msg = BlockedNotice(" ", "@northwind.example", "reason")
	assert.True(t, strings.HasPrefix(msg.Body, "Hello there,\n"))
}
