package inbound

import (
	"net/http"
	"time"

	"github.com/schoolhub/schoolhub/internal/school/entity"
)

type SchoolResponse struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Contact   string    `json:"contact"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toSchoolResponse(s entity.School) SchoolResponse {
	return SchoolResponse{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Contact:   s.Contact,
		Address:   s.Address,
		City:      s.City,
		State:     s.State,
		ImageURL:  s.ImageURL,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type ListMeta struct {
	Total  int64
	Limit  int32
	Offset int32
}

type SchoolListResponse struct {
	Schools []SchoolResponse `json:"schools"`
	Page    ListMeta         `json:"-"`
}

func (r SchoolListResponse) Meta() map[string]any {
	return map[string]any{
		"total":  r.Page.Total,
		"limit":  r.Page.Limit,
		"offset": r.Page.Offset,
	}
}

type SchoolCreateResponse struct {
	SchoolResponse
}

func (SchoolCreateResponse) Message() string {
	return "School registered."
}

func (SchoolCreateResponse) StatusCode() int {
	return http.StatusCreated
}

type SchoolDeleteResponse struct{}

func (SchoolDeleteResponse) Message() string {
	return "School deleted."
}
