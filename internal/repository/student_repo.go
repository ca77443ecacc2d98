package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sekolahku/siswa-api/internal/models"
)

// ErrDuplicateNIS indicates the unique index on nis rejected a write.
var ErrDuplicateNIS = errors.New("nis already registered")

// StudentFilter defines the composable list predicates.
type StudentFilter struct {
	Search   string
	Kelas    string
	Page     int
	PageSize int
}

// StudentRepository exposes persistence operations for student records.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (models.Student, error)
	NISExists(ctx context.Context, nis string, excludeID uint) (bool, error)
	List(ctx context.Context, filter StudentFilter) ([]models.Student, int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs the student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	if err := r.db.WithContext(ctx).Create(student).Error; err != nil {
		return translateDuplicate(err)
	}
	return nil
}

func (r *studentRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error) {
	tx := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id = ?", id).
		Updates(updates)
	if tx.Error != nil {
		return models.Student{}, translateDuplicate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return models.Student{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *studentRepository) Delete(ctx context.Context, id uint) error {
	tx := r.db.WithContext(ctx).Delete(&models.Student{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) NISExists(ctx context.Context, nis string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{}).Where("nis = ?", nis)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.Student, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(nama_lengkap) LIKE ? OR LOWER(nis) LIKE ?", like, like)
	}

	if filter.Kelas != "" && filter.Kelas != "all" {
		query = query.Where("kelas = ?", filter.Kelas)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Ties on created_at break by id so page boundaries stay stable.
	query = query.Order("created_at DESC, id DESC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Limit(filter.PageSize).Offset(offset)
	}

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

// translateDuplicate normalizes driver unique-violation errors. The
// unique index is the source of truth for nis uniqueness; the service's
// existence check is only a fast path for better error messages.
func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateNIS
	}
	return err
}
