package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vendorwatch/internal/vendors/models"
	id "vendorwatch/pkg/domain"
)

// Writer is the write side both stores expose for seeding.
type Writer interface {
	CreateVendor(ctx context.Context, v *models.Vendor) error
	AddDocument(ctx context.Context, d *models.VendorDocument) error
	AddReviewer(ctx context.Context, r *models.Reviewer) error
}

// SeedDemo loads a small data set that exercises every branch of a run:
// an expired document, an expiring one, a blocked vendor and a stale review.
func SeedDemo(ctx context.Context, w Writer, now time.Time) error {
	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	vendors := []struct {
		vendor *models.Vendor
		docs   map[models.DocType]*time.Time
	}{
		{
			vendor: newVendor("Northwind Traders", "compliance@northwind.example", models.VendorStatusApproved, now.Add(-90*day)),
			docs: map[models.DocType]*time.Time{
				models.DocTypeInsuranceCertificate: at(-day),
				models.DocTypeTaxRegistration:      at(400 * day),
			},
		},
		{
			vendor: newVendor("Contoso Fabrication", "quality@contoso.example", models.VendorStatusActive, now.Add(-60*day)),
			docs: map[models.DocType]*time.Time{
				models.DocTypeQualityCertification: at(10 * day),
			},
		},
		{
			vendor: newVendor("Fabrikam Logistics", "admin@fabrikam.example", models.VendorStatusNeedsRenewal, now.Add(-120*day)),
			docs: map[models.DocType]*time.Time{
				models.DocTypeBusinessRegistration: at(5 * day),
			},
		},
		{
			vendor: newVendor("Tailspin Components", "hello@tailspin.example", models.VendorStatusUnderReview, now.Add(-3*day)),
		},
	}

	for _, entry := range vendors {
		if err := w.CreateVendor(ctx, entry.vendor); err != nil {
			return fmt.Errorf("seed vendor %s: %w", entry.vendor.Name, err)
		}
		for docType, expiry := range entry.docs {
			doc := &models.VendorDocument{
				ID:         id.DocumentID(uuid.New()),
				VendorID:   entry.vendor.ID,
				DocType:    docType,
				ExpiryDate: expiry,
				FileName:   fmt.Sprintf("%s.pdf", docType),
				UploadedAt: entry.vendor.CreatedAt,
			}
			if err := w.AddDocument(ctx, doc); err != nil {
				return fmt.Errorf("seed document %s: %w", docType, err)
			}
		}
	}

	return w.AddReviewer(ctx, &models.Reviewer{
		ID:        id.UserID(uuid.New()),
		Name:      "Priya Raman",
		Email:     "reviews@vendorwatch.example",
		Role:      models.RoleReviewer,
		Active:    true,
		CreatedAt: now.Add(-365 * day),
	})
}

func newVendor(name, email string, status models.VendorStatus, createdAt time.Time) *models.Vendor {
	return &models.Vendor{
		ID:        id.VendorID(uuid.New()),
		Name:      name,
		Email:     email,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
