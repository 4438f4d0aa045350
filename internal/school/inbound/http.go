package inbound

import (
	"context"

	"github.com/schoolhub/schoolhub/internal/pkg/router"
	"github.com/schoolhub/schoolhub/internal/school/entity"
	"github.com/schoolhub/schoolhub/internal/school/usecase"
)

type uc interface {
	SchoolList(ctx context.Context, in usecase.SchoolListInput) (*usecase.SchoolListOutput, error)
	SchoolGet(ctx context.Context, in usecase.SchoolGetInput) (*entity.School, error)
	SchoolCreate(ctx context.Context, in usecase.SchoolCreateInput) (*entity.School, error)
	SchoolUpdate(ctx context.Context, in usecase.SchoolUpdateInput) (*entity.School, error)
	SchoolDelete(ctx context.Context, in usecase.SchoolDeleteInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/schools", end.List)
	r.GET("/api/schools/:id", end.Get)
	r.POST("/api/schools", end.Create)
	r.PUT("/api/schools/:id", end.Update)
	r.DELETE("/api/schools/:id", end.Delete)
}
