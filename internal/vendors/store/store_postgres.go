package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vendorwatch/internal/vendors/models"
	id "vendorwatch/pkg/domain"
	"vendorwatch/pkg/platform/sentinel"
)

// PostgresStore reads vendor compliance data and applies conditional status
// updates. Pure I/O: classification and planning belong in the compliance
// service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateVendor(ctx context.Context, v *models.Vendor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, email, status, review_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(v.ID), v.Name, v.Email, string(v.Status), v.ReviewNotes, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddDocument(ctx context.Context, d *models.VendorDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendor_documents (id, vendor_id, doc_type, expiry_date, file_name, file_url, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(d.ID), uuid.UUID(d.VendorID), string(d.DocType), d.ExpiryDate, d.FileName, d.FileURL, d.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert vendor document: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddReviewer(ctx context.Context, r *models.Reviewer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(r.ID), r.Email, r.Name, string(r.Role), r.Active, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reviewer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindVendor(ctx context.Context, vendorID id.VendorID) (*models.Vendor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, status, review_notes, created_at, updated_at
		FROM vendors WHERE id = $1
	`, uuid.UUID(vendorID))
	v, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find vendor: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListMandatoryWithExpiry(ctx context.Context, docTypes []models.DocType) ([]models.ExpiringDocument, error) {
	types := make([]string, len(docTypes))
	for i, t := range docTypes {
		types[i] = string(t)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.doc_type, d.expiry_date, d.file_name,
		       v.id, v.name, v.email, v.status
		FROM vendor_documents d
		JOIN vendors v ON v.id = d.vendor_id
		WHERE d.doc_type = ANY($1::text[])
		  AND d.expiry_date IS NOT NULL
		ORDER BY d.uploaded_at, d.id
	`, pq.Array(types))
	if err != nil {
		return nil, fmt.Errorf("query mandatory documents: %w", err)
	}
	defer rows.Close()

	var out []models.ExpiringDocument
	for rows.Next() {
		var (
			doc      models.ExpiringDocument
			docID    uuid.UUID
			vendorID uuid.UUID
			docType  string
			status   string
		)
		if err := rows.Scan(&docID, &docType, &doc.ExpiryDate, &doc.FileName,
			&vendorID, &doc.VendorName, &doc.VendorEmail, &status); err != nil {
			return nil, fmt.Errorf("scan mandatory document: %w", err)
		}
		doc.DocumentID = id.DocumentID(docID)
		doc.VendorID = id.VendorID(vendorID)
		doc.DocType = models.DocType(docType)
		doc.VendorStatus = models.VendorStatus(status)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mandatory documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListPendingReviewBefore(ctx context.Context, cutoff time.Time) ([]*models.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, status, review_notes, created_at, updated_at
		FROM vendors
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
	`, string(models.VendorStatusUnderReview), cutoff)
	if err != nil {
		return nil, fmt.Errorf("query pending reviews: %w", err)
	}
	defer rows.Close()

	var out []*models.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending review: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending reviews: %w", err)
	}
	return out, nil
}

// TransitionStatus updates one vendor row only while it is still in t.From.
// Zero affected rows means the vendor vanished or someone else changed it.
func (s *PostgresStore) TransitionStatus(ctx context.Context, t models.StatusTransition) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vendors
		SET status = $3, review_notes = $4, updated_at = $5
		WHERE id = $1 AND status = $2
	`, uuid.UUID(t.VendorID), string(t.From), string(t.To), t.ReviewNotes, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update vendor status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vendor status: %w", err)
	}
	if n == 0 {
		if _, err := s.FindVendor(ctx, t.VendorID); err != nil {
			return fmt.Errorf("vendor %s: %w", t.VendorID, err)
		}
		return fmt.Errorf("vendor %s left %s: %w", t.VendorID, t.From, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) FindActiveReviewer(ctx context.Context) (*models.Reviewer, error) {
	var (
		r      models.Reviewer
		userID uuid.UUID
		role   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, active, created_at
		FROM users
		WHERE role = $1 AND active
		ORDER BY created_at
		LIMIT 1
	`, string(models.RoleReviewer)).Scan(&userID, &r.Name, &r.Email, &role, &r.Active, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active reviewer: %w", err)
	}
	r.ID = id.UserID(userID)
	r.Role = models.Role(role)
	return &r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*models.Vendor, error) {
	var (
		v        models.Vendor
		vendorID uuid.UUID
		status   string
	)
	if err := row.Scan(&vendorID, &v.Name, &v.Email, &status, &v.ReviewNotes, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.ID = id.VendorID(vendorID)
	v.Status = models.VendorStatus(status)
	return &v, nil
}
