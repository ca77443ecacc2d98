package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/sekolahku/siswa-api/internal/dto"
)

const msgNISTaken = "Nomor Induk Siswa sudah terdaftar."

// formFieldNames maps struct field names to their form field names.
var formFieldNames = map[string]string{
	"NIS":          "nis",
	"NamaLengkap":  "nama_lengkap",
	"Kelas":        "kelas",
	"JenisKelamin": "jenis_kelamin",
	"TanggalLahir": "tanggal_lahir",
	"Alamat":       "alamat",
	"NomorTelepon": "nomor_telepon",
}

// validationMessages holds the per-field, per-rule messages keyed as
// "<field>.<tag>".
var validationMessages = map[string]string{
	"nis.required":           "Nomor Induk Siswa wajib diisi.",
	"nis.max":                "Nomor Induk Siswa maksimal 20 karakter.",
	"nama_lengkap.required":  "Nama lengkap wajib diisi.",
	"nama_lengkap.max":       "Nama lengkap maksimal 255 karakter.",
	"kelas.required":         "Kelas wajib dipilih.",
	"kelas.oneof":            "Kelas harus salah satu dari: X, XI, XII.",
	"jenis_kelamin.required": "Jenis kelamin wajib dipilih.",
	"jenis_kelamin.oneof":    "Jenis kelamin harus L (Laki-laki) atau P (Perempuan).",
	"tanggal_lahir.required": "Tanggal lahir wajib diisi.",
	"alamat.required":        "Alamat wajib diisi.",
	"alamat.max":             "Alamat maksimal 1000 karakter.",
	"nomor_telepon.required": "Nomor telepon wajib diisi.",
	"nomor_telepon.max":      "Nomor telepon maksimal 20 karakter.",
}

// sniffedImageExt maps accepted photo MIME types to the extension used
// for the stored blob.
var sniffedImageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// validate collects every field violation of the form and the optional
// photo. excludeID carves the record being updated out of the nis
// uniqueness check. On success it returns the parsed birth date and the
// buffered photo payload, if one was attached.
func (s *studentService) validate(ctx context.Context, form dto.StudentForm, excludeID uint, foto *multipart.FileHeader) (time.Time, *fotoPayload, error) {
	errs := FieldErrors{}

	if err := s.validator.Struct(form); err != nil {
		var violations validator.ValidationErrors
		if !errors.As(err, &violations) {
			return time.Time{}, nil, err
		}
		for _, violation := range violations {
			field, ok := formFieldNames[violation.StructField()]
			if !ok {
				field = strings.ToLower(violation.StructField())
			}
			message, ok := validationMessages[field+"."+violation.Tag()]
			if !ok {
				message = "Nilai tidak valid."
			}
			errs.add(field, message)
		}
	}

	birthDate := s.validateBirthDate(form.TanggalLahir, errs)
	s.validateNIS(ctx, form.NIS, excludeID, errs)

	payload, err := s.validateFoto(foto, errs)
	if err != nil {
		return time.Time{}, nil, err
	}

	if len(errs) > 0 {
		return time.Time{}, nil, errs
	}

	return birthDate, payload, nil
}

func (s *studentService) validateBirthDate(raw string, errs FieldErrors) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(birthDateLayout, raw)
	if err != nil {
		errs.add("tanggal_lahir", "Tanggal lahir tidak valid.")
		return time.Time{}
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !parsed.Before(today) {
		errs.add("tanggal_lahir", "Tanggal lahir harus sebelum hari ini.")
		return time.Time{}
	}

	return parsed
}

// validateNIS is the application-level uniqueness fast path. The unique
// index catches the create/create race; this check only produces the
// friendly message for the common case.
func (s *studentService) validateNIS(ctx context.Context, nis string, excludeID uint, errs FieldErrors) {
	nis = strings.TrimSpace(nis)
	if nis == "" || len(nis) > 20 {
		return
	}

	exists, err := s.repo.NISExists(ctx, nis, excludeID)
	if err != nil {
		s.logger.Error().Err(err).Msg("nis existence check failed")
		return
	}
	if exists {
		errs.add("nis", msgNISTaken)
	}
}

func (s *studentService) validateFoto(foto *multipart.FileHeader, errs FieldErrors) (*fotoPayload, error) {
	if foto == nil {
		return nil, nil
	}

	if foto.Size > maxFotoBytes {
		errs.add("foto", "Ukuran foto maksimal 2MB.")
		return nil, nil
	}

	handle, err := foto.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, maxFotoBytes+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > maxFotoBytes {
		errs.add("foto", "Ukuran foto maksimal 2MB.")
		return nil, nil
	}

	mime := mimetype.Detect(buf.Bytes())
	detected := strings.ToLower(mime.String())
	ext, allowed := sniffedImageExt[detected]
	if !allowed {
		if strings.HasPrefix(detected, "image/") {
			errs.add("foto", "Foto harus berformat: jpeg, png, jpg, atau gif.")
		} else {
			errs.add("foto", "File harus berupa gambar.")
		}
		return nil, nil
	}

	base := strings.TrimSuffix(filepath.Base(foto.Filename), filepath.Ext(foto.Filename))
	if base == "" || base == "." {
		base = "foto"
	}

	return &fotoPayload{name: base + ext, data: buf.Bytes()}, nil
}
