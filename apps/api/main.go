// Command api serves the reference school administration backend.
package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	dig_container "github.com/trezcool/masomo-admin/apps/api/di/dig"
	echoapi "github.com/trezcool/masomo-admin/apps/api/echo"
	"github.com/trezcool/masomo-admin/core"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(conf *core.Config, logger core.Logger, server echoapi.Server) {
		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer logger.Info("Application stopped")

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		errs := make(chan error, 1)
		go func() {
			errs <- server.Start()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errs:
			if err != nil {
				logger.Fatal(fmt.Sprintf("server error: %v", err), err)
			}

		case sig := <-shutdown:
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.MockAPI.ShutdownTimeout)
			defer cancel()

			if err := server.Stop(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
