package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/pkg/goroutine"
	"github.com/schoolhub/schoolhub/internal/pkg/idempotency"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/pkg/uid"
	"github.com/schoolhub/schoolhub/internal/pkg/validator"
	"github.com/schoolhub/schoolhub/internal/school/entity"
	"go.opentelemetry.io/otel/trace"
)

// SchoolChangedEvent announces a school mutation to downstream consumers.
type SchoolChangedEvent struct {
	Action   string
	SchoolID int64
	Name     string
	ActorID  int64
}

type repoMessaging interface {
	PublishSchoolChanged(ctx context.Context, msg SchoolChangedEvent) error
}

type repoMedia interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, imageURL string) error
}

type repoDB interface {
	ListSchools(ctx context.Context, filter entity.ListFilter) ([]entity.School, int64, error)
	GetSchool(ctx context.Context, id int64) (*entity.School, error)
	CreateSchool(ctx context.Context, in entity.School) (*entity.School, error)
	UpdateSchool(ctx context.Context, in entity.School) (*entity.School, error)
	DeleteSchool(ctx context.Context, id int64) (*entity.School, error)
}

// Usecase implements the school registry workflows.
type Usecase struct {
	repoDB        repoDB
	repoMedia     repoMedia
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	enforcer      *casbin.Enforcer
	uuid          uid.StringID
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoMedia     repoMedia
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	Enforcer      *casbin.Enforcer
	UUID          uid.StringID
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMedia:     dep.RepoMedia,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		enforcer:      dep.Enforcer,
		uuid:          dep.UUID,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("school.usecase").Start(ctx, name)
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.enforcer.Enforce(clm.UserRole, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}

// publishChange emits the event without delaying the response. Delivery is
// best-effort.
func (s *Usecase) publishChange(ctx context.Context, evt SchoolChangedEvent) {
	ctx = context.WithoutCancel(ctx)

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		if err := s.repoMessaging.PublishSchoolChanged(ctx, evt); err != nil {
			slog.WarnContext(ctx, "failed to publish school change event",
				"school_id", evt.SchoolID, "action", evt.Action, "error", err)
		}

		return nil
	})
}

// removeImage drops the stored image without failing the caller.
func (s *Usecase) removeImage(ctx context.Context, imageURL string) {
	if imageURL == "" {
		return
	}

	ctx = context.WithoutCancel(ctx)

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := s.repoMedia.Remove(ctx, imageURL); err != nil {
			slog.WarnContext(ctx, "failed to remove school image", "image_url", imageURL, "error", err)
		}

		return nil
	})
}
