package inbound

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/samber/lo"
	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/pkg/router"
	"github.com/schoolhub/schoolhub/internal/school/entity"
	"github.com/schoolhub/schoolhub/internal/school/usecase"
)

const maxMultipartMemory = 8 << 20 // form fields in memory, files spill to disk

// HTTPEndpoint exposes HTTP handlers for the school registry.
type HTTPEndpoint struct {
	uc uc
}

// List returns schools matching the optional city, state, and search filters.
func (h *HTTPEndpoint) List(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}

	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.SchoolList(r.Context(), usecase.SchoolListInput{
		City:   r.GetQuery("city"),
		State:  r.GetQuery("state"),
		Search: r.GetQuery("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	return SchoolListResponse{
		Schools: lo.Map(resp.Schools, func(s entity.School, _ int) SchoolResponse {
			return toSchoolResponse(s)
		}),
		Page: ListMeta{Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset},
	}, nil
}

// Get returns one school by id.
func (h *HTTPEndpoint) Get(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.SchoolGet(r.Context(), usecase.SchoolGetInput{ID: id})
	if err != nil {
		return nil, err
	}

	return toSchoolResponse(*resp), nil
}

// Create registers a school from a multipart form with an image file field.
func (h *HTTPEndpoint) Create(r *router.Request) (any, error) {
	image, contentType, err := h.parseForm(r)
	if err != nil {
		return nil, err
	}
	if image != nil {
		defer image.Close()
	}

	in := usecase.SchoolCreateInput{
		Name:           r.FormValue("name"),
		Email:          r.FormValue("email"),
		Contact:        r.FormValue("contact"),
		Address:        r.FormValue("address"),
		City:           r.FormValue("city"),
		State:          r.FormValue("state"),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if image != nil {
		in.Image = image
		in.ImageContentType = contentType
	}

	resp, err := h.uc.SchoolCreate(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return SchoolCreateResponse{SchoolResponse: toSchoolResponse(*resp)}, nil
}

// Update edits a school; the image field is optional.
func (h *HTTPEndpoint) Update(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	image, contentType, err := h.parseForm(r)
	if err != nil {
		return nil, err
	}
	if image != nil {
		defer image.Close()
	}

	in := usecase.SchoolUpdateInput{
		ID:      id,
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Contact: r.FormValue("contact"),
		Address: r.FormValue("address"),
		City:    r.FormValue("city"),
		State:   r.FormValue("state"),
	}
	if image != nil {
		in.Image = image
		in.ImageContentType = contentType
	}

	resp, err := h.uc.SchoolUpdate(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return toSchoolResponse(*resp), nil
}

// Delete removes a school.
func (h *HTTPEndpoint) Delete(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.SchoolDelete(r.Context(), usecase.SchoolDeleteInput{ID: id}); err != nil {
		return nil, err
	}

	return SchoolDeleteResponse{}, nil
}

// parseForm reads the multipart body and returns the image file when present.
func (h *HTTPEndpoint) parseForm(r *router.Request) (multipart.File, string, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, "", goerror.NewInvalidFormat("Invalid request content-type")
		}

		return nil, "", goerror.NewInvalidFormat()
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", goerror.NewInvalidFormat()
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = sniffContentType(file)
	}

	return file, contentType, nil
}

// sniffContentType detects the type from the first bytes and rewinds.
func sniffContentType(file multipart.File) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return ""
	}

	return http.DetectContentType(buf[:n])
}
