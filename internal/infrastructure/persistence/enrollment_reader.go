package persistence

import (
	"context"

	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEnrollmentReader expands enrollments into student, person and category
// data with a single explicit join.
type GormEnrollmentReader struct {
	db *gorm.DB
}

var _ billing.EnrollmentReader = (*GormEnrollmentReader)(nil)

// NewGormEnrollmentReader creates a new GormEnrollmentReader
func NewGormEnrollmentReader(db *gorm.DB) *GormEnrollmentReader {
	return &GormEnrollmentReader{db: db}
}

// FindDetails returns enrollment details keyed by student category ID.
// Enrollments whose student or person row is missing are omitted; a missing
// category only leaves the category fields empty.
func (r *GormEnrollmentReader) FindDetails(ctx context.Context, studentCategoryIDs []uuid.UUID) (map[uuid.UUID]billing.EnrollmentDetail, error) {
	details := make(map[uuid.UUID]billing.EnrollmentDetail, len(studentCategoryIDs))
	if len(studentCategoryIDs) == 0 {
		return details, nil
	}

	var rows []models.EnrollmentDetailRow
	err := r.db.WithContext(ctx).
		Table("student_categories AS sc").
		Select(`sc.id AS student_category_id,
			s.id AS student_id,
			p.id AS person_id,
			p.first_name, p.last_name, p.document_number,
			c.id AS category_id,
			c.name AS category_name`).
		Joins("JOIN students AS s ON s.id = sc.student_id").
		Joins("JOIN people AS p ON p.id = s.person_id").
		Joins("LEFT JOIN categories AS c ON c.id = sc.category_id").
		Where("sc.id IN ?", studentCategoryIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		detail := billing.EnrollmentDetail{
			StudentCategoryID: row.StudentCategoryID,
			StudentID:         row.StudentID,
			PersonID:          row.PersonID,
			FirstName:         row.FirstName,
			LastName:          row.LastName,
			DocumentNumber:    row.DocumentNumber,
		}
		if row.CategoryID != nil {
			detail.CategoryID = *row.CategoryID
		}
		if row.CategoryName != nil {
			detail.CategoryName = *row.CategoryName
		}
		details[row.StudentCategoryID] = detail
	}
	return details, nil
}
