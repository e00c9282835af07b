package dig_container

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-admin/apps/api/echo"
	"github.com/trezcool/masomo-admin/core"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newServerOptions(conf *core.Config, logger core.Logger, db *dummydb.DB) *echoapi.Options {
	return &echoapi.Options{
		Address:            conf.MockAPI.Address,
		AppName:            conf.AppName,
		Debug:              conf.Debug,
		TestMode:           conf.TestMode,
		DisableReqLogs:     conf.TestMode,
		SecretKey:          conf.MockAPI.SecretKey,
		JWTExpirationDelta: conf.MockAPI.JWTExpirationDelta,
		AdminUsername:      conf.MockAPI.AdminUsername,
		AdminPassword:      conf.MockAPI.AdminPassword,
		Logger:             logger,
		DB:                 db,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(dummydb.Open))
	must(c.Provide(newServerOptions))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
