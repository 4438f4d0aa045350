package app

import (
	"context"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/schoolhub/schoolhub/internal/pkg/clock"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/goroutine"
	"github.com/schoolhub/schoolhub/internal/pkg/hash"
	"github.com/schoolhub/schoolhub/internal/pkg/idempotency"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/pkg/mail"
	"github.com/schoolhub/schoolhub/internal/pkg/messaging"
	"github.com/schoolhub/schoolhub/internal/pkg/otpcode"
	"github.com/schoolhub/schoolhub/internal/pkg/router"
	"github.com/schoolhub/schoolhub/internal/pkg/storage"
	"github.com/schoolhub/schoolhub/internal/pkg/uid"
	"github.com/schoolhub/schoolhub/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	otp       otpcode.Generator
	jwt       jwt.JWT

	// resources
	dbConn       *pgxpool.Pool
	cacheConn    *redis.Client
	idemp        idempotency.Idempotency
	mail         mail.Mail
	messaging    messaging.Messaging
	storage      storage.Storage
	localStorage *storage.LocalAdapter
	casbin       *casbin.Enforcer

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initStorage()
	app.initMessaging()
	app.initCasbin()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
