package app

import (
	"log/slog"
	"os"

	"github.com/schoolhub/schoolhub/internal/auth"
	"github.com/schoolhub/schoolhub/internal/pages"
	"github.com/schoolhub/schoolhub/internal/school"
)

func (a *App) initModules() {
	if err := auth.New(auth.Dependency{
		Ctx:        a.ctx,
		Goroutine:  a.goroutine,
		Router:     a.router,
		Messaging:  a.messaging,
		Mail:       a.mail,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		HMAC:       a.hmac,
		Otp:        a.otp,
		Clock:      a.clock,
		Validator:  a.validator,
		JWT:        a.jwt,
		DBConn:     a.dbConn,
		CacheConn:  a.cacheConn,
	}); err != nil {
		slog.Error("failed to init module auth", "error", err)
		os.Exit(1)
	}

	if err := school.New(school.Dependency{
		Goroutine:    a.goroutine,
		Router:       a.router,
		Messaging:    a.messaging,
		Enforcer:     a.casbin,
		Config:       a.config,
		Instrument:   a.ins,
		UID:          a.uid,
		UUID:         a.uuid,
		Clock:        a.clock,
		Validator:    a.validator,
		LocalStorage: a.localStorage,
		Storage:      a.storage,
		DBConn:       a.dbConn,
		Idempotency:  a.idemp,
	}); err != nil {
		slog.Error("failed to init module school", "error", err)
		os.Exit(1)
	}

	pages.RegisterHTTPEndpoint(a.router)
}
