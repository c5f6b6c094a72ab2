package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"vendorwatch/internal/vendors/models"
	id "vendorwatch/pkg/domain"
	"vendorwatch/pkg/platform/sentinel"
)

// InMemory holds vendors, documents and reviewers in process memory. It backs
// tests and local runs without a database.
type InMemory struct {
	mu        sync.RWMutex
	vendors   map[id.VendorID]*models.Vendor
	documents []*models.VendorDocument
	reviewers []*models.Reviewer
}

func NewInMemory() *InMemory {
	return &InMemory{vendors: make(map[id.VendorID]*models.Vendor)}
}

func (s *InMemory) CreateVendor(_ context.Context, v *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vendors[v.ID]; exists {
		return fmt.Errorf("vendor %s: %w", v.ID, sentinel.ErrConflict)
	}
	cp := *v
	s.vendors[v.ID] = &cp
	return nil
}

func (s *InMemory) AddDocument(_ context.Context, d *models.VendorDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vendors[d.VendorID]; !ok {
		return fmt.Errorf("vendor %s: %w", d.VendorID, sentinel.ErrNotFound)
	}
	cp := *d
	s.documents = append(s.documents, &cp)
	return nil
}

func (s *InMemory) AddReviewer(_ context.Context, r *models.Reviewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reviewers = append(s.reviewers, &cp)
	return nil
}

func (s *InMemory) FindVendor(_ context.Context, vendorID id.VendorID) (*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// ListMandatoryWithExpiry returns documents of the given types that carry an
// expiry date, in upload order, joined with their vendor.
func (s *InMemory) ListMandatoryWithExpiry(_ context.Context, docTypes []models.DocType) ([]models.ExpiringDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ExpiringDocument
	for _, d := range s.documents {
		if d.ExpiryDate == nil || !slices.Contains(docTypes, d.DocType) {
			continue
		}
		v, ok := s.vendors[d.VendorID]
		if !ok {
			continue
		}
		out = append(out, models.ExpiringDocument{
			DocumentID:   d.ID,
			DocType:      d.DocType,
			ExpiryDate:   *d.ExpiryDate,
			FileName:     d.FileName,
			VendorID:     v.ID,
			VendorName:   v.Name,
			VendorEmail:  v.Email,
			VendorStatus: v.Status,
		})
	}
	return out, nil
}

// ListPendingReviewBefore returns UNDER_REVIEW vendors created before cutoff,
// oldest first.
func (s *InMemory) ListPendingReviewBefore(_ context.Context, cutoff time.Time) ([]*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Vendor
	for _, v := range s.vendors {
		if v.Status == models.VendorStatusUnderReview && v.CreatedAt.Before(cutoff) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// TransitionStatus applies t only if the vendor is still in t.From.
func (s *InMemory) TransitionStatus(_ context.Context, t models.StatusTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vendors[t.VendorID]
	if !ok {
		return fmt.Errorf("vendor %s: %w", t.VendorID, sentinel.ErrNotFound)
	}
	if v.Status != t.From {
		return fmt.Errorf("vendor %s is %s, expected %s: %w", t.VendorID, v.Status, t.From, sentinel.ErrConflict)
	}
	t.Apply(v)
	return nil
}

// FindActiveReviewer returns the longest-standing active reviewer.
func (s *InMemory) FindActiveReviewer(_ context.Context) (*models.Reviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Reviewer
	for _, r := range s.reviewers {
		if r.Role != models.RoleReviewer || !r.Active {
			continue
		}
		if found == nil || r.CreatedAt.Before(found.CreatedAt) {
			found = r
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *found
	return &cp, nil
}
