package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"vendorwatch/internal/vendors/models"
)

// PolicyFile is the YAML shape of COMPLIANCE_POLICY_FILE. Every field is
// optional; unset fields keep their environment value.
//
//	mandatory_doc_types: [BUSINESS_REGISTRATION, INSURANCE_CERTIFICATE]
//	expiring_window: 720h
//	review_sla: 48h
//	schedule:
//	  hour: 9
//	  minute: 0
//	  timezone: Asia/Kolkata
type PolicyFile struct {
	MandatoryDocTypes []string       `yaml:"mandatory_doc_types"`
	ExpiringWindow    *time.Duration `yaml:"expiring_window"`
	ReviewSLA         *time.Duration `yaml:"review_sla"`
	Concurrency       *int           `yaml:"concurrency"`
	RunTimeout        *time.Duration `yaml:"run_timeout"`
	Schedule          *struct {
		Hour     *int   `yaml:"hour"`
		Minute   *int   `yaml:"minute"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`
}

func LoadPolicyFile(path string) (*PolicyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(raw)
}

func ParsePolicy(raw []byte) (*PolicyFile, error) {
	var p PolicyFile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return &p, nil
}

func (p *PolicyFile) apply(c *Compliance) {
	if len(p.MandatoryDocTypes) > 0 {
		c.MandatoryDocTypes = docTypes(p.MandatoryDocTypes)
	}
	if p.ExpiringWindow != nil {
		c.ExpiringWindow = *p.ExpiringWindow
	}
	if p.ReviewSLA != nil {
		c.ReviewSLA = *p.ReviewSLA
	}
	if p.Concurrency != nil {
		c.Concurrency = *p.Concurrency
	}
	if p.RunTimeout != nil {
		c.RunTimeout = *p.RunTimeout
	}
	if s := p.Schedule; s != nil {
		if s.Hour != nil {
			c.ScheduleHour = *s.Hour
		}
		if s.Minute != nil {
			c.ScheduleMinute = *s.Minute
		}
		if s.Timezone != "" {
			c.Timezone = s.Timezone
		}
	}
}

// DocTypes returns the configured mandatory types as model values.
func (c Compliance) DocTypes() []models.DocType {
	return append([]models.DocType(nil), c.MandatoryDocTypes...)
}
