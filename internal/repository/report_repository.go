package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/delivery-reports/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GetReport loads a report with its items and images. Items come back in
// their submitted order, images in upload order within each kind.
func (r *ReportRepository) GetReport(ctx context.Context, id uint) (*model.DeliveryReport, error) {
	var report model.DeliveryReport
	if err := r.db.WithContext(ctx).Raw(`
		SELECT *
		FROM delivery_reports
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&report).Error; err != nil {
		return nil, err
	}
	if report.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, report_id, position, name, quantity
		FROM delivery_report_items
		WHERE report_id = ?
		ORDER BY position ASC, id ASC
	`, id).Scan(&report.Items).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, report_id, kind, url, uploaded_at
		FROM delivery_report_images
		WHERE report_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`, id).Scan(&report.Images).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepository) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, username, first_name, last_name, signature_url
		FROM users
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&user).Error; err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *ReportRepository) GetLocation(ctx context.Context, id uint) (*model.Location, error) {
	var location model.Location
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, client_name, logo_url
		FROM locations
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&location).Error; err != nil {
		return nil, err
	}
	if location.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &location, nil
}

// UpdateReportFiles writes the generated artifact keys onto the report.
func (r *ReportRepository) UpdateReportFiles(ctx context.Context, id uint, excelKey, pdfKey string) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE delivery_reports
		SET excel_report_file = ?, pdf_report_file = ?, updated_at = NOW()
		WHERE id = ?
	`, excelKey, pdfKey, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListUndocumented returns the IDs of reports created before the cutoff that
// still have no generated files, oldest first. The worker re-enqueues these.
func (r *ReportRepository) ListUndocumented(ctx context.Context, olderThan time.Time, limit int) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id
		FROM delivery_reports
		WHERE (excel_report_file IS NULL OR excel_report_file = ''
			OR pdf_report_file IS NULL OR pdf_report_file = '')
			AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?
	`, olderThan, limit).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
