package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "vendorwatch/pkg/domain-errors"
)

// Typed identifiers keep vendor, document and user ids from being mixed up at
// compile time. All are UUIDs underneath.
type (
	VendorID   uuid.UUID
	DocumentID uuid.UUID
	UserID     uuid.UUID
	RunID      uuid.UUID
)

func (id VendorID) String() string   { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id RunID) String() string      { return uuid.UUID(id).String() }

func (id VendorID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID { return RunID(uuid.New()) }

func ParseVendorID(s string) (VendorID, error) {
	u, err := parseUUID(s, "vendor")
	return VendorID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document")
	return DocumentID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}
