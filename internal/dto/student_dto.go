package dto

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sekolahku/siswa-api/internal/models"
)

// StudentForm carries the scalar fields of a create/update request. The
// photo travels separately as a multipart file. The form tags are the
// explicit allow-list of settable fields.
type StudentForm struct {
	NIS          string `form:"nis" json:"nis" validate:"required,max=20"`
	NamaLengkap  string `form:"nama_lengkap" json:"nama_lengkap" validate:"required,max=255"`
	Kelas        string `form:"kelas" json:"kelas" validate:"required,oneof=X XI XII"`
	JenisKelamin string `form:"jenis_kelamin" json:"jenis_kelamin" validate:"required,oneof=L P"`
	TanggalLahir string `form:"tanggal_lahir" json:"tanggal_lahir" validate:"required"`
	Alamat       string `form:"alamat" json:"alamat" validate:"required,max=1000"`
	NomorTelepon string `form:"nomor_telepon" json:"nomor_telepon" validate:"required,max=20"`
}

// Normalized returns a copy of the form with surrounding whitespace
// stripped from every field, so whitespace-only input fails the
// required rules instead of slipping past them.
func (f StudentForm) Normalized() StudentForm {
	f.NIS = strings.TrimSpace(f.NIS)
	f.NamaLengkap = strings.TrimSpace(f.NamaLengkap)
	f.Kelas = strings.TrimSpace(f.Kelas)
	f.JenisKelamin = strings.TrimSpace(f.JenisKelamin)
	f.TanggalLahir = strings.TrimSpace(f.TanggalLahir)
	f.Alamat = strings.TrimSpace(f.Alamat)
	f.NomorTelepon = strings.TrimSpace(f.NomorTelepon)
	return f
}

// StudentResponse serializes a student record for API consumers.
type StudentResponse struct {
	ID           uint      `json:"id"`
	NIS          string    `json:"nis"`
	NamaLengkap  string    `json:"nama_lengkap"`
	DisplayName  string    `json:"display_name"`
	Kelas        string    `json:"kelas"`
	JenisKelamin string    `json:"jenis_kelamin"`
	GenderLabel  string    `json:"gender_label"`
	TanggalLahir string    `json:"tanggal_lahir"`
	Alamat       string    `json:"alamat"`
	NomorTelepon string    `json:"nomor_telepon"`
	Foto         string    `json:"foto,omitempty"`
	FotoURL      string    `json:"foto_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentListFilters echoes the active list filters back to the client.
type StudentListFilters struct {
	Search string `json:"search"`
	Kelas  string `json:"kelas"`
}

// PageLink describes one navigable page in a paginated response.
type PageLink struct {
	URL    *string `json:"url"`
	Label  string  `json:"label"`
	Active bool    `json:"active"`
}

// StudentListResponse wraps one page of students with pagination
// metadata and the echoed filters.
type StudentListResponse struct {
	Data        []StudentResponse  `json:"data"`
	CurrentPage int                `json:"current_page"`
	LastPage    int                `json:"last_page"`
	PerPage     int                `json:"per_page"`
	Total       int64              `json:"total"`
	Links       []PageLink         `json:"links"`
	Filters     StudentListFilters `json:"filters"`
}

// NewStudentResponse converts a student model into a DTO. fotoURL is the
// resolved public URL for the stored photo reference, if any.
func NewStudentResponse(student models.Student, fotoURL string) StudentResponse {
	return StudentResponse{
		ID:           student.ID,
		NIS:          student.NIS,
		NamaLengkap:  student.NamaLengkap,
		DisplayName:  student.DisplayName(),
		Kelas:        student.Kelas,
		JenisKelamin: student.JenisKelamin,
		GenderLabel:  student.GenderLabel(),
		TanggalLahir: student.TanggalLahir.Format("2006-01-02"),
		Alamat:       student.Alamat,
		NomorTelepon: student.NomorTelepon,
		Foto:         student.Foto,
		FotoURL:      fotoURL,
		CreatedAt:    student.CreatedAt,
		UpdatedAt:    student.UpdatedAt,
	}
}

// BuildPageLinks produces the previous/numbered/next link triples for a
// paginated listing. Filter values are carried into every URL so paging
// preserves the active search and kelas selection.
func BuildPageLinks(basePath string, filters StudentListFilters, page, lastPage int) []PageLink {
	links := make([]PageLink, 0, lastPage+2)

	prev := PageLink{Label: "&laquo; Previous"}
	if page > 1 {
		prev.URL = pageURL(basePath, filters, page-1)
	}
	links = append(links, prev)

	for n := 1; n <= lastPage; n++ {
		links = append(links, PageLink{
			URL:    pageURL(basePath, filters, n),
			Label:  strconv.Itoa(n),
			Active: n == page,
		})
	}

	next := PageLink{Label: "Next &raquo;"}
	if page < lastPage {
		next.URL = pageURL(basePath, filters, page+1)
	}
	links = append(links, next)

	return links
}

func pageURL(basePath string, filters StudentListFilters, page int) *string {
	values := url.Values{}
	if filters.Search != "" {
		values.Set("search", filters.Search)
	}
	if filters.Kelas != "" && filters.Kelas != "all" {
		values.Set("kelas", filters.Kelas)
	}
	values.Set("page", strconv.Itoa(page))

	built := fmt.Sprintf("%s?%s", basePath, values.Encode())
	return &built
}
