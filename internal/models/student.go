package models

import (
	"fmt"
	"time"
)

// Kelas levels recognised by the school.
const (
	KelasX   = "X"
	KelasXI  = "XI"
	KelasXII = "XII"
)

// Jenis kelamin codes. L = Laki-laki, P = Perempuan.
const (
	GenderMale   = "L"
	GenderFemale = "P"
)

// Student represents a single siswa record.
type Student struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	NIS          string    `gorm:"column:nis;size:20;uniqueIndex;not null" json:"nis"`
	NamaLengkap  string    `gorm:"size:255;not null;index" json:"nama_lengkap"`
	Kelas        string    `gorm:"size:3;not null;index;index:idx_students_kelas_created_at,priority:1" json:"kelas"`
	JenisKelamin string    `gorm:"size:1;not null" json:"jenis_kelamin"`
	TanggalLahir time.Time `gorm:"type:date;not null" json:"tanggal_lahir"`
	Alamat       string    `gorm:"type:text;not null" json:"alamat"`
	NomorTelepon string    `gorm:"size:20;not null" json:"nomor_telepon"`
	Foto         string    `gorm:"size:255" json:"foto"`
	CreatedAt    time.Time `gorm:"index:idx_students_kelas_created_at,priority:2" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName returns the student's full name with the NIS appended.
func (s Student) DisplayName() string {
	return fmt.Sprintf("%s (%s)", s.NamaLengkap, s.NIS)
}

// GenderLabel returns the Indonesian label for the gender code.
func (s Student) GenderLabel() string {
	if s.JenisKelamin == GenderMale {
		return "Laki-laki"
	}
	return "Perempuan"
}

// ValidKelas reports whether the value is a recognised class level.
func ValidKelas(kelas string) bool {
	switch kelas {
	case KelasX, KelasXI, KelasXII:
		return true
	}
	return false
}
