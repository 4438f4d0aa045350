// Package school is the school registry module: public browsing plus
// authenticated registration, editing, and removal with an image pipeline.
package school

import (
	"log/slog"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schoolhub/schoolhub/internal/pkg/clock"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/goroutine"
	"github.com/schoolhub/schoolhub/internal/pkg/idempotency"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/messaging"
	"github.com/schoolhub/schoolhub/internal/pkg/router"
	"github.com/schoolhub/schoolhub/internal/pkg/storage"
	"github.com/schoolhub/schoolhub/internal/pkg/uid"
	"github.com/schoolhub/schoolhub/internal/pkg/validator"
	"github.com/schoolhub/schoolhub/internal/school/inbound"
	"github.com/schoolhub/schoolhub/internal/school/outbound/db"
	"github.com/schoolhub/schoolhub/internal/school/outbound/media"
	"github.com/schoolhub/schoolhub/internal/school/outbound/memory"
	"github.com/schoolhub/schoolhub/internal/school/outbound/mq"
	"github.com/schoolhub/schoolhub/internal/school/usecase"
)

type Dependency struct {
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Enforcer   *casbin.Enforcer           `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`

	// LocalStorage is the disk fallback for image uploads and is always set.
	// Storage is the primary driver and may be nil, in which case images go
	// straight to disk.
	LocalStorage storage.Storage `validate:"required"`
	Storage      storage.Storage

	// DBConn and Idempotency are optional; see the auth module for the same
	// degradation rules.
	DBConn      *pgxpool.Pool
	Idempotency idempotency.Idempotency
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	primary := dep.Storage
	if primary == dep.LocalStorage {
		primary = nil
	}

	mediaRepo := media.NewMedia(primary, dep.LocalStorage, media.Config{
		Bucket:        dep.Config.GetString("modules.school.image_bucket"),
		BaseURL:       dep.Config.GetString("modules.school.image_base_url"),
		UploadTimeout: dep.Config.GetSecond("modules.school.upload_timeout_seconds"),
		MaxRetries:    uint64(dep.Config.GetInt("modules.school.upload_max_retries")),
	}, dep.Instrument)

	ucDep := usecase.Dependency{
		RepoMedia:     mediaRepo,
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Enforcer:      dep.Enforcer,
		UUID:          dep.UUID,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	}

	if dep.DBConn != nil {
		ucDep.RepoDB = db.NewDB(dep.DBConn, dep.Instrument)
	} else {
		slog.Warn("school module running with in-memory store")
		ucDep.RepoDB = memory.NewStore(dep.UID, dep.Clock)
	}

	inbound.RegisterHTTPEndpoint(dep.Router, usecase.New(ucDep))

	return nil
}
