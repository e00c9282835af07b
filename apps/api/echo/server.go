package echoapi

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

type (
	Options struct {
		Address            string
		AppName            string
		Debug              bool
		TestMode           bool
		DisableReqLogs     bool
		SecretKey          string
		JWTExpirationDelta time.Duration
		AdminUsername      string
		AdminPassword      string
		Logger             core.Logger
		DB                 *dummydb.DB
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		db   *dummydb.DB
		auth *authenticator
		jobs *bulkSender
	}
)

var _ Server = (*server)(nil)

// NewServer builds the reference backend on top of opts.DB, seeding the admin account when missing.
func NewServer(opts *Options) (Server, error) {
	if opts.Logger == nil {
		opts.Logger = logsvc.NewNopLogger()
	}
	if opts.DB == nil {
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		opts.DB = db
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
		db:   opts.DB,
		auth: &authenticator{
			appName:  opts.AppName,
			secret:   []byte(opts.SecretKey),
			lifetime: opts.JWTExpirationDelta,
			accounts: opts.DB.Accounts,
		},
		jobs: newBulkSender(),
	}
	if err := s.seedAdmin(); err != nil {
		return nil, err
	}
	s.setup()
	return s, nil
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	translator := core.NewTranslator(core.DefaultLocale)
	s.app.Validator = &appValidator{validate: core.NewValidator(translator), translator: translator}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.app.GET("/debug/vars", echo.WrapHandler(expvar.Handler()))

	api := s.app.Group("/api")
	api.POST("/auth/login", s.auth.login)

	authed := api.Group("", bearerMiddleware(s.auth))
	authed.GET("/auth/me", s.me)
	s.registerAcademicRoutes(authed)
	s.registerPeopleRoutes(authed)
	s.registerEnrollmentRoutes(authed)
	s.registerFinanceRoutes(authed)
	s.registerTransportRoutes(authed)
	s.registerWhatsAppRoutes(authed)
}

func (s *server) seedAdmin() error {
	if s.opts.AdminUsername == "" {
		return nil
	}
	uname := core.CleanString(s.opts.AdminUsername, true)
	if s.db.Accounts.Any(func(acc dummydb.Account) bool { return acc.Username == uname }) {
		return nil
	}
	hash, err := hashPassword(s.opts.AdminPassword)
	if err != nil {
		return err
	}
	s.db.Accounts.Insert(dummydb.Account{
		User: school.User{
			Name:      "Admin",
			Username:  uname,
			IsActive:  true,
			Roles:     []string{school.RoleAdmin},
			CreatedAt: time.Now().UTC(),
		},
		PasswordHash: hash,
	})
	return nil
}

func (s *server) Start() error {
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "starting server")
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Madrasa API!")
}

func (s *server) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	accs := s.db.Accounts.Filter(func(acc dummydb.Account) bool { return acc.Username == claims.Username })
	if len(accs) == 0 {
		return errUnauthorized
	}
	return ok(ctx, accs[0].User)
}

// changedBy is the Ref of the authenticated user.
func changedBy(ctx echo.Context) *school.Ref {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil
	}
	ref := &school.Ref{Name: claims.Username}
	ref.ID, _ = atoi(claims.Subject)
	return ref
}
