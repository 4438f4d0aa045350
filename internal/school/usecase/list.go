package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/school/entity"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type SchoolListInput struct {
	City   string
	State  string
	Search string
	Limit  int32
	Offset int32
}

type SchoolListOutput struct {
	Schools []entity.School
	Total   int64
	Limit   int32
	Offset  int32
}

// SchoolList returns a page of schools matching the optional filters.
func (s *Usecase) SchoolList(ctx context.Context, in SchoolListInput) (*SchoolListOutput, error) {
	ctx, span := s.startSpan(ctx, "SchoolList")
	defer span.End()

	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	filter := entity.ListFilter{
		City:   strings.TrimSpace(in.City),
		State:  strings.TrimSpace(in.State),
		Search: strings.TrimSpace(in.Search),
		Limit:  limit,
		Offset: offset,
	}

	schools, total, err := s.repoDB.ListSchools(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list schools", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SchoolListOutput{
		Schools: schools,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
