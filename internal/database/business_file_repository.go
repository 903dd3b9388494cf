package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FileRepository handles uploaded intake document records
type FileRepository struct {
	db sqlx.ExtContext
}

// NewFileRepository creates a new file repository
func NewFileRepository(db sqlx.ExtContext) *FileRepository {
	return &FileRepository{db: db}
}

// Upsert records the uploaded file of a form field, replacing a previous upload
func (r *FileRepository) Upsert(ctx context.Context, file *models.BusinessFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now()
	}

	query := `
		INSERT INTO business_files (id, business_id, field_name, url, original_name, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (business_id, field_name) DO UPDATE
		SET url = EXCLUDED.url,
			original_name = EXCLUDED.original_name,
			uploaded_at = EXCLUDED.uploaded_at
	`

	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.BusinessID,
		file.FieldName,
		file.URL,
		file.OriginalName,
		file.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save business file: %w", err)
	}

	return nil
}

// ListByBusiness returns the uploaded files of a business
func (r *FileRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*models.BusinessFile, error) {
	files := []*models.BusinessFile{}
	query := `
		SELECT id, business_id, field_name, url, original_name, uploaded_at
		FROM business_files
		WHERE business_id = $1
		ORDER BY field_name ASC
	`

	if err := sqlx.SelectContext(ctx, r.db, &files, query, businessID); err != nil {
		return nil, fmt.Errorf("failed to list business files: %w", err)
	}
	return files, nil
}
