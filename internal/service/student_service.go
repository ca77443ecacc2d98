package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/sekolahku/siswa-api/internal/dto"
	"github.com/sekolahku/siswa-api/internal/models"
	"github.com/sekolahku/siswa-api/internal/repository"
	"github.com/sekolahku/siswa-api/internal/storage"
)

// ErrStudentNotFound indicates the requested student does not exist.
var ErrStudentNotFound = errors.New("student not found")

const (
	birthDateLayout = "2006-01-02"
	maxFotoBytes    = 2 * 1024 * 1024
	studentBasePath = "/api/v1/students"
)

// FieldErrors maps form field names to their validation messages. All
// violations are collected before the request is rejected.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	return "validation failed"
}

func (e FieldErrors) add(field, message string) {
	e[field] = append(e[field], message)
}

// StudentService orchestrates the validated student read/write use cases.
type StudentService interface {
	List(ctx context.Context, search, kelas string, page int) (dto.StudentListResponse, error)
	Get(ctx context.Context, id uint) (dto.StudentResponse, error)
	Create(ctx context.Context, form dto.StudentForm, foto *multipart.FileHeader) (dto.StudentResponse, error)
	Update(ctx context.Context, id uint, form dto.StudentForm, foto *multipart.FileHeader) (dto.StudentResponse, error)
	Delete(ctx context.Context, id uint) error
}

type studentService struct {
	repo      repository.StudentRepository
	gateway   storage.Gateway
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	pageSize  int
}

// NewStudentService constructs the student service.
func NewStudentService(repo repository.StudentRepository, gateway storage.Gateway, validate *validator.Validate, pageSize int, logger zerolog.Logger) StudentService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &studentService{
		repo:      repo,
		gateway:   gateway,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "student_service").Logger(),
		tracer:    otel.Tracer("github.com/sekolahku/siswa-api/internal/service/student"),
		pageSize:  pageSize,
	}
}

func (s *studentService) List(ctx context.Context, search, kelas string, page int) (dto.StudentListResponse, error) {
	search = strings.TrimSpace(search)
	kelas = strings.TrimSpace(kelas)
	if kelas == "" {
		kelas = "all"
	}
	if page <= 0 {
		page = 1
	}

	students, total, err := s.repo.List(ctx, repository.StudentFilter{
		Search:   search,
		Kelas:    kelas,
		Page:     page,
		PageSize: s.pageSize,
	})
	if err != nil {
		return dto.StudentListResponse{}, err
	}

	lastPage := int(math.Ceil(float64(total) / float64(s.pageSize)))
	if lastPage < 1 {
		lastPage = 1
	}

	responses := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewStudentResponse(student, s.gateway.URL(student.Foto)))
	}

	filters := dto.StudentListFilters{Search: search, Kelas: kelas}

	return dto.StudentListResponse{
		Data:        responses,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     s.pageSize,
		Total:       total,
		Links:       dto.BuildPageLinks(studentBasePath, filters, page, lastPage),
		Filters:     filters,
	}, nil
}

func (s *studentService) Get(ctx context.Context, id uint) (dto.StudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student, s.gateway.URL(student.Foto)), nil
}

func (s *studentService) Create(ctx context.Context, form dto.StudentForm, foto *multipart.FileHeader) (dto.StudentResponse, error) {
	form = form.Normalized()

	birthDate, payload, err := s.validate(ctx, form, 0, foto)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	student := models.Student{
		NIS:          form.NIS,
		NamaLengkap:  s.sanitizer.Sanitize(form.NamaLengkap),
		Kelas:        form.Kelas,
		JenisKelamin: form.JenisKelamin,
		TanggalLahir: birthDate,
		Alamat:       s.sanitizer.Sanitize(form.Alamat),
		NomorTelepon: form.NomorTelepon,
	}

	// The blob is stored before the row so no row ever references a blob
	// that failed to store.
	if payload != nil {
		ref, err := s.storeFoto(ctx, payload)
		if err != nil {
			return dto.StudentResponse{}, fmt.Errorf("failed to store photo: %w", err)
		}
		student.Foto = ref
	}

	if err := s.repo.Create(ctx, &student); err != nil {
		s.discardBlob(ctx, student.Foto)
		if errors.Is(err, repository.ErrDuplicateNIS) {
			return dto.StudentResponse{}, FieldErrors{"nis": {msgNISTaken}}
		}
		return dto.StudentResponse{}, err
	}

	s.logger.Info().Uint("id", student.ID).Str("nis", student.NIS).Msg("student created")

	return dto.NewStudentResponse(student, s.gateway.URL(student.Foto)), nil
}

func (s *studentService) Update(ctx context.Context, id uint, form dto.StudentForm, foto *multipart.FileHeader) (dto.StudentResponse, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	form = form.Normalized()

	birthDate, payload, err := s.validate(ctx, form, id, foto)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	updates := map[string]interface{}{
		"nis":           form.NIS,
		"nama_lengkap":  s.sanitizer.Sanitize(form.NamaLengkap),
		"kelas":         form.Kelas,
		"jenis_kelamin": form.JenisKelamin,
		"tanggal_lahir": birthDate,
		"alamat":        s.sanitizer.Sanitize(form.Alamat),
		"nomor_telepon": form.NomorTelepon,
	}

	var newRef string
	if payload != nil {
		newRef, err = s.storeFoto(ctx, payload)
		if err != nil {
			return dto.StudentResponse{}, fmt.Errorf("failed to store photo: %w", err)
		}
		updates["foto"] = newRef
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		s.discardBlob(ctx, newRef)
		switch {
		case errors.Is(err, repository.ErrDuplicateNIS):
			return dto.StudentResponse{}, FieldErrors{"nis": {msgNISTaken}}
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	// The old blob goes away only after the row update committed. A crash
	// in between leaks a blob, never an orphaned reference.
	if newRef != "" && existing.Foto != "" && existing.Foto != newRef {
		if err := s.gateway.Delete(ctx, existing.Foto); err != nil {
			s.logger.Warn().Err(err).Str("ref", existing.Foto).Msg("failed to delete replaced photo")
		}
	}

	s.logger.Info().Uint("id", id).Msg("student updated")

	return dto.NewStudentResponse(updated, s.gateway.URL(updated.Foto)), nil
}

func (s *studentService) Delete(ctx context.Context, id uint) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	// Row first, blob second: the blob must never vanish while a row
	// still references it.
	if existing.Foto != "" {
		if err := s.gateway.Delete(ctx, existing.Foto); err != nil {
			s.logger.Warn().Err(err).Str("ref", existing.Foto).Msg("failed to delete photo of removed student")
		}
	}

	s.logger.Info().Uint("id", id).Msg("student deleted")

	return nil
}

type fotoPayload struct {
	name string
	data []byte
}

func (s *studentService) storeFoto(ctx context.Context, payload *fotoPayload) (string, error) {
	ctx, span := s.tracer.Start(ctx, "student.store_foto")
	defer span.End()

	span.SetAttributes(
		attribute.String("foto.name", payload.name),
		attribute.Int("foto.size_bytes", len(payload.data)),
	)

	ref, err := s.gateway.Store(ctx, payload.name, bytes.NewReader(payload.data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return "", err
	}

	span.SetStatus(codes.Ok, "stored")

	return ref, nil
}

// discardBlob is best-effort cleanup of a blob whose row write failed.
func (s *studentService) discardBlob(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.gateway.Delete(ctx, ref); err != nil {
		s.logger.Warn().Err(err).Str("ref", ref).Msg("failed to discard unreferenced photo")
	}
}
