package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/siswa-api/internal/dto"
	"github.com/sekolahku/siswa-api/internal/handler"
	"github.com/sekolahku/siswa-api/internal/service"
)

type mockStudentService struct {
	lastSearch string
	lastKelas  string
	lastPage   int
	lastID     uint
	lastForm   dto.StudentForm
	lastFoto   *multipart.FileHeader

	listResponse dto.StudentListResponse
	response     dto.StudentResponse
	err          error
}

func (m *mockStudentService) List(_ context.Context, search, kelas string, page int) (dto.StudentListResponse, error) {
	m.lastSearch = search
	m.lastKelas = kelas
	m.lastPage = page
	return m.listResponse, m.err
}

func (m *mockStudentService) Get(_ context.Context, id uint) (dto.StudentResponse, error) {
	m.lastID = id
	return m.response, m.err
}

func (m *mockStudentService) Create(_ context.Context, form dto.StudentForm, foto *multipart.FileHeader) (dto.StudentResponse, error) {
	m.lastForm = form
	m.lastFoto = foto
	return m.response, m.err
}

func (m *mockStudentService) Update(_ context.Context, id uint, form dto.StudentForm, foto *multipart.FileHeader) (dto.StudentResponse, error) {
	m.lastID = id
	m.lastForm = form
	m.lastFoto = foto
	return m.response, m.err
}

func (m *mockStudentService) Delete(_ context.Context, id uint) error {
	m.lastID = id
	return m.err
}

func newTestApp(svc service.StudentService) *fiber.App {
	app := fiber.New()
	handler.NewStudentHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/students"))
	return app
}

func TestStudentHandler_ListForwardsFilters(t *testing.T) {
	svc := &mockStudentService{listResponse: dto.StudentListResponse{
		Data:        []dto.StudentResponse{{ID: 1, NamaLengkap: "Budi Santoso"}},
		CurrentPage: 2,
		LastPage:    3,
		PerPage:     10,
		Total:       25,
	}}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students?search=budi&kelas=X&page=2", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                    `json:"success"`
		Data    dto.StudentListResponse `json:"data"`
		Message string                  `json:"message"`
	}
	decodeResponse(t, resp, &body)

	require.True(t, body.Success)
	require.Equal(t, "students retrieved", body.Message)
	require.Equal(t, int64(25), body.Data.Total)
	require.Equal(t, "budi", svc.lastSearch)
	require.Equal(t, "X", svc.lastKelas)
	require.Equal(t, 2, svc.lastPage)
}

func TestStudentHandler_ListInvalidPage(t *testing.T) {
	app := newTestApp(&mockStudentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students?page=bad", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStudentHandler_GetNotFound(t *testing.T) {
	app := newTestApp(&mockStudentService{err: service.ErrStudentNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/42", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStudentHandler_GetInvalidID(t *testing.T) {
	app := newTestApp(&mockStudentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStudentHandler_CreateSuccess(t *testing.T) {
	svc := &mockStudentService{response: dto.StudentResponse{ID: 1, NIS: "1001"}}
	app := newTestApp(svc)

	body, contentType := buildStudentForm(t, map[string]string{
		"nis":           "1001",
		"nama_lengkap":  "Budi Santoso",
		"kelas":         "X",
		"jenis_kelamin": "L",
		"tanggal_lahir": "2007-03-12",
		"alamat":        "Jl. Merdeka No. 1",
		"nomor_telepon": "081234567890",
	}, "budi.png", []byte{0x89, 0x50, 0x4E, 0x47})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Equal(t, "1001", svc.lastForm.NIS)
	require.Equal(t, "X", svc.lastForm.Kelas)
	require.NotNil(t, svc.lastFoto)
	require.Equal(t, "budi.png", svc.lastFoto.Filename)
}

func TestStudentHandler_CreateWithoutFoto(t *testing.T) {
	svc := &mockStudentService{response: dto.StudentResponse{ID: 1}}
	app := newTestApp(svc)

	body, contentType := buildStudentForm(t, map[string]string{"nis": "1001"}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Nil(t, svc.lastFoto)
}

func TestStudentHandler_CreateValidationErrors(t *testing.T) {
	svc := &mockStudentService{err: service.FieldErrors{
		"nis":   {"Nomor Induk Siswa wajib diisi."},
		"kelas": {"Kelas wajib dipilih."},
	}}
	app := newTestApp(svc)

	body, contentType := buildStudentForm(t, map[string]string{}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var payload struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	decodeResponse(t, resp, &payload)

	require.False(t, payload.Success)
	require.Contains(t, payload.Errors["nis"], "Nomor Induk Siswa wajib diisi.")
	require.Contains(t, payload.Errors["kelas"], "Kelas wajib dipilih.")
}

func TestStudentHandler_UpdateNotFound(t *testing.T) {
	app := newTestApp(&mockStudentService{err: service.ErrStudentNotFound})

	body, contentType := buildStudentForm(t, map[string]string{"nis": "1001"}, "", nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/students/42", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStudentHandler_DeleteSuccess(t *testing.T) {
	svc := &mockStudentService{}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/students/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.lastID)
}

func TestStudentHandler_DeleteNotFound(t *testing.T) {
	app := newTestApp(&mockStudentService{err: service.ErrStudentNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/students/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStudentHandler_ServiceError(t *testing.T) {
	app := newTestApp(&mockStudentService{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func buildStudentForm(t *testing.T, fields map[string]string, fotoName string, fotoContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	if fotoName != "" {
		part, err := writer.CreateFormFile("foto", fotoName)
		require.NoError(t, err)
		_, err = part.Write(fotoContent)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
