package compliance

import (
	"errors"
	"fmt"
	"time"

	"vendorwatch/internal/vendors/models"
)

// Policy holds the thresholds a run evaluates against.
type Policy struct {
	MandatoryDocTypes []models.DocType
	ExpiringWindow    time.Duration
	ReviewSLA         time.Duration
	Concurrency       int
	RunTimeout        time.Duration
	// Location renders dates in notifications and reasons.
	Location *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		MandatoryDocTypes: append([]models.DocType(nil), models.DefaultMandatoryDocTypes...),
		ExpiringWindow:    30 * 24 * time.Hour,
		ReviewSLA:         48 * time.Hour,
		Concurrency:       8,
		RunTimeout:        10 * time.Minute,
		Location:          time.UTC,
	}
}

func (p Policy) Validate() error {
	var errs []error
	if len(p.MandatoryDocTypes) == 0 {
		errs = append(errs, errors.New("at least one mandatory document type is required"))
	}
	if p.ExpiringWindow <= 0 {
		errs = append(errs, fmt.Errorf("expiring window must be positive, got %s", p.ExpiringWindow))
	}
	if p.ReviewSLA <= 0 {
		errs = append(errs, fmt.Errorf("review SLA must be positive, got %s", p.ReviewSLA))
	}
	if p.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", p.Concurrency))
	}
	if p.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("run timeout must be positive, got %s", p.RunTimeout))
	}
	return errors.Join(errs...)
}
