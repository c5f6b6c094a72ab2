package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	id "vendorwatch/pkg/domain"
)

// DocType is a compliance document kind, e.g. INSURANCE_CERTIFICATE.
type DocType string

const (
	DocTypeBusinessRegistration DocType = "BUSINESS_REGISTRATION"
	DocTypeTaxRegistration      DocType = "TAX_REGISTRATION"
	DocTypeQualityCertification DocType = "QUALITY_CERTIFICATION"
	DocTypeInsuranceCertificate DocType = "INSURANCE_CERTIFICATE"
	DocTypeBankLetter           DocType = "BANK_LETTER"
)

// DefaultMandatoryDocTypes gate vendor qualification unless configured otherwise.
var DefaultMandatoryDocTypes = []DocType{
	DocTypeBusinessRegistration,
	DocTypeTaxRegistration,
	DocTypeQualityCertification,
	DocTypeInsuranceCertificate,
}

var titleCaser = cases.Title(language.English)

// Label renders a doc type for humans: INSURANCE_CERTIFICATE -> "Insurance Certificate".
func (t DocType) Label() string {
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(string(t), "_", " ")))
}

// VendorDocument is an uploaded compliance document.
type VendorDocument struct {
	ID         id.DocumentID `json:"id"`
	VendorID   id.VendorID   `json:"vendor_id"`
	DocType    DocType       `json:"doc_type"`
	ExpiryDate *time.Time    `json:"expiry_date,omitempty"`
	FileName   string        `json:"file_name"`
	FileURL    string        `json:"file_url"`
	UploadedAt time.Time     `json:"uploaded_at"`
}

// ExpiringDocument is a mandatory document joined with the owning vendor's
// fields the compliance engine needs.
type ExpiringDocument struct {
	DocumentID   id.DocumentID
	DocType      DocType
	ExpiryDate   time.Time
	FileName     string
	VendorID     id.VendorID
	VendorName   string
	VendorEmail  string
	VendorStatus VendorStatus
}
