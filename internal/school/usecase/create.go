package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/pkg/idempotency"
	"github.com/schoolhub/schoolhub/internal/shared/event"
	"github.com/schoolhub/schoolhub/internal/school/entity"
)

//nolint:gochecknoglobals // global for fast reuse
var imageContentTypeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type SchoolCreateInput struct {
	Name    string `validate:"required,min=2,max=120"`
	Email   string `validate:"required,email"`
	Contact string `validate:"required,min=6,max=20"`
	Address string `validate:"required,max=255"`
	City    string `validate:"required,alphaspace,max=80"`
	State   string `validate:"required,alphaspace,max=80"`

	Image            io.Reader `validate:"required"`
	ImageContentType string    `validate:"required"`

	// IdempotencyKey guards against duplicate form submits. Empty disables
	// the check.
	IdempotencyKey string
}

// SchoolCreate registers a new school with its image.
func (s *Usecase) SchoolCreate(ctx context.Context, in SchoolCreateInput) (*entity.School, error) {
	ctx, span := s.startSpan(ctx, "SchoolCreate")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, "schools", "create")
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	contentType := strings.ToLower(strings.TrimSpace(in.ImageContentType))
	ext, ok := imageContentTypeExt[contentType]
	if !ok {
		return nil, goerror.NewInvalidInput(nil, "image", "unsupported image content type")
	}

	var created *entity.School
	do := func(ctx context.Context) error {
		key := fmt.Sprintf("schools/%d/%s-%s%s", clm.UserID, sanitizeKeyPart(in.Name), s.uuid.Generate(), ext)

		imageURL, err := s.repoMedia.Upload(ctx, key, in.Image, contentType)
		if err != nil {
			slog.ErrorContext(ctx, "failed to upload school image", "error", err)
			return goerror.NewServer(err)
		}

		created, err = s.repoDB.CreateSchool(ctx, entity.School{
			Name:      strings.TrimSpace(in.Name),
			Email:     strings.ToLower(strings.TrimSpace(in.Email)),
			Contact:   strings.TrimSpace(in.Contact),
			Address:   strings.TrimSpace(in.Address),
			City:      strings.TrimSpace(in.City),
			State:     strings.TrimSpace(in.State),
			ImageURL:  imageURL,
			CreatedBy: clm.UserID,
		})
		if errors.Is(err, goerror.ErrConflict) {
			s.removeImage(ctx, imageURL)
			return goerror.NewBusiness("A school with that email already exists", goerror.CodeConflict)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo create school", "error", err)
			s.removeImage(ctx, imageURL)
			return goerror.NewServer(err)
		}

		s.publishChange(ctx, SchoolChangedEvent{
			Action:   event.SchoolActionCreated,
			SchoolID: created.ID,
			Name:     created.Name,
			ActorID:  clm.UserID,
		})

		return nil
	}

	if in.IdempotencyKey == "" || s.idemp == nil {
		if err := do(ctx); err != nil {
			return nil, err
		}

		return created, nil
	}

	err = s.idemp.Exec(ctx, "school-create:"+in.IdempotencyKey, do)
	if errors.Is(err, idempotency.ErrAlreadyInProgress) || errors.Is(err, idempotency.ErrAlreadyCompleted) {
		return nil, goerror.NewBusiness("This submission was already processed", goerror.CodeConflict)
	}
	if err != nil {
		return nil, err
	}

	return created, nil
}

// sanitizeKeyPart keeps object keys to a safe character set.
func sanitizeKeyPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}

	if b.Len() == 0 {
		return "school"
	}

	return b.String()
}
