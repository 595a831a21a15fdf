package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInstallmentRepository implements billing.InstallmentRepository using GORM.
// Default reads rely on the gorm.DeletedAt scope; IncludingDeleted reads use
// Unscoped. Writes to existing rows are Unscoped with explicit deleted_at and
// version conditions, so a stale copy never overwrites a newer row.
type GormInstallmentRepository struct {
	db *gorm.DB
}

var _ billing.InstallmentRepository = (*GormInstallmentRepository)(nil)

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// Create inserts a new installment
func (r *GormInstallmentRepository) Create(ctx context.Context, inst *billing.Installment) error {
	model := models.InstallmentModelFromDomain(inst)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateWriteError(err)
	}
	inst.MarkPersisted()
	return nil
}

// Save writes the editable and payment columns of a non-deleted installment.
// The soft-delete stamp columns are left to SoftDelete and Restore.
func (r *GormInstallmentRepository) Save(ctx context.Context, inst *billing.Installment) error {
	model := models.InstallmentModelFromDomain(inst)
	version := nextVersion(inst)
	result := r.db.WithContext(ctx).Unscoped().
		Model(&models.InstallmentModel{}).
		Where("id = ? AND version = ? AND deleted_at IS NULL", inst.ID, inst.PersistedVersion()).
		Updates(map[string]any{
			"student_category_id":  model.StudentCategoryID,
			"year":                 model.Year,
			"month":                model.Month,
			"amount":               model.Amount,
			"discount":             model.Discount,
			"surcharge":            model.Surcharge,
			"state":                model.State,
			"due_date":             model.DueDate,
			"payment_date":         model.PaymentDate,
			"payment_method":       model.PaymentMethod,
			"receipt_number":       model.ReceiptNumber,
			"collected_by_user_id": model.CollectedByUserID,
			"notes":                model.Notes,
			"version":              version,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return r.lockFailure(ctx, inst.ID, false)
	}
	inst.Version = version
	inst.MarkPersisted()
	return nil
}

// FindByID finds a non-deleted installment by ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Installment, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDIncludingDeleted finds an installment by ID whether or not it is soft-deleted
func (r *GormInstallmentRepository) FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*billing.Installment, error) {
	return r.first(r.db.WithContext(ctx).Unscoped().Where("id = ?", id))
}

// FindActiveByPeriod finds the non-deleted installment holding the period key
func (r *GormInstallmentRepository) FindActiveByPeriod(ctx context.Context, studentCategoryID uuid.UUID, period billing.Period) (*billing.Installment, error) {
	return r.first(r.db.WithContext(ctx).
		Where("student_category_id = ? AND year = ? AND month = ?", studentCategoryID, period.Year, int16(period.Month)))
}

// FindByEnrollment lists an enrollment's installments, newest period first.
// month is numeric so "2" sorts before "10".
func (r *GormInstallmentRepository) FindByEnrollment(ctx context.Context, studentCategoryID uuid.UUID) ([]billing.Installment, error) {
	return r.find(r.db.WithContext(ctx).
		Where("student_category_id = ?", studentCategoryID).
		Order("year DESC").Order("month DESC"))
}

// FindByState lists installments, optionally filtered by state
func (r *GormInstallmentRepository) FindByState(ctx context.Context, state *billing.InstallmentState) ([]billing.Installment, error) {
	query := r.db.WithContext(ctx).Model(&models.InstallmentModel{})
	if state != nil {
		query = query.Where("state = ?", state.String())
	}
	return r.find(query.Order("year DESC").Order("month DESC").Order("created_at ASC"))
}

// FindByPeriod lists installments of an exact period
func (r *GormInstallmentRepository) FindByPeriod(ctx context.Context, period billing.Period) ([]billing.Installment, error) {
	return r.find(r.db.WithContext(ctx).
		Where("year = ? AND month = ?", period.Year, int16(period.Month)).
		Order("created_at ASC"))
}

// FindOverdue lists unpaid installments due before ref, oldest due date first
func (r *GormInstallmentRepository) FindOverdue(ctx context.Context, ref time.Time) ([]billing.Installment, error) {
	return r.find(r.db.WithContext(ctx).
		Where("state IN ? AND due_date < ?", []string{billing.StatePending.String(), billing.StateOverdue.String()}, ref).
		Order("due_date ASC"))
}

// FindDueForOverdue lists PENDING installments due before ref, at most limit rows
func (r *GormInstallmentRepository) FindDueForOverdue(ctx context.Context, ref time.Time, limit int) ([]billing.Installment, error) {
	query := r.db.WithContext(ctx).
		Where("state = ? AND due_date < ?", billing.StatePending.String(), ref).
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.find(query)
}

// SoftDelete writes the deletion stamp columns
func (r *GormInstallmentRepository) SoftDelete(ctx context.Context, inst *billing.Installment) error {
	if inst.DeletedAt == nil {
		return fmt.Errorf("soft delete installment %s: missing deletion stamp", inst.ID)
	}
	return r.updateStamp(ctx, inst, "deleted_at IS NULL", false, map[string]any{
		"deleted_at": *inst.DeletedAt,
		"deleted_by": inst.DeletedBy,
		"updated_at": inst.UpdatedAt,
	})
}

// Restore clears the deletion stamp columns and writes the restoration stamp
func (r *GormInstallmentRepository) Restore(ctx context.Context, inst *billing.Installment) error {
	return r.updateStamp(ctx, inst, "", true, map[string]any{
		"deleted_at":  nil,
		"deleted_by":  nil,
		"restored_at": inst.RestoredAt,
		"restored_by": inst.RestoredBy,
		"updated_at":  inst.UpdatedAt,
	})
}

// HardDelete physically removes the installment
func (r *GormInstallmentRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Unscoped().Delete(&models.InstallmentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return billing.ErrInstallmentNotFound
	}
	return nil
}

func (r *GormInstallmentRepository) updateStamp(ctx context.Context, inst *billing.Installment, scope string, reachDeleted bool, columns map[string]any) error {
	version := nextVersion(inst)
	columns["version"] = version

	query := r.db.WithContext(ctx).Unscoped().
		Model(&models.InstallmentModel{}).
		Where("id = ? AND version = ?", inst.ID, inst.PersistedVersion())
	if scope != "" {
		query = query.Where(scope)
	}
	result := query.Updates(columns)
	if result.Error != nil {
		return translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return r.lockFailure(ctx, inst.ID, reachDeleted)
	}
	inst.Version = version
	inst.MarkPersisted()
	return nil
}

// lockFailure explains a conditional write that matched no row. A missing
// row, or a soft-deleted one when the write needs a live row, is not found;
// anything else was changed by another writer since it was loaded.
func (r *GormInstallmentRepository) lockFailure(ctx context.Context, id uuid.UUID, reachDeleted bool) error {
	var model models.InstallmentModel
	err := r.db.WithContext(ctx).Unscoped().
		Select("id", "deleted_at").
		Where("id = ?", id).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billing.ErrInstallmentNotFound
	}
	if err != nil {
		return err
	}
	if model.DeletedAt.Valid && !reachDeleted {
		return billing.ErrInstallmentNotFound
	}
	return billing.ErrConcurrentModification
}

// nextVersion is the version a successful write stores. Mutators have
// already bumped Version; a write with no pending mutation still moves it.
func nextVersion(inst *billing.Installment) int {
	if inst.Version > inst.PersistedVersion() {
		return inst.Version
	}
	return inst.PersistedVersion() + 1
}

func (r *GormInstallmentRepository) first(query *gorm.DB) (*billing.Installment, error) {
	var model models.InstallmentModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormInstallmentRepository) find(query *gorm.DB) ([]billing.Installment, error) {
	var rows []models.InstallmentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	installments := make([]billing.Installment, len(rows))
	for i := range rows {
		installments[i] = *rows[i].ToDomain()
	}
	return installments, nil
}

// translateWriteError maps a period key collision to ErrDuplicatePeriod.
// The only unique constraint on installments besides the primary key is the
// period index, and primary keys are generated.
func translateWriteError(err error) error {
	if isUniqueViolation(err) {
		return billing.ErrDuplicatePeriod
	}
	return err
}
