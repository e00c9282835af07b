// Command admin manages a school from the terminal: session, active school and year,
// listings, users and bulk WhatsApp sends.
package main

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/messaging"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/settings"
	"github.com/trezcool/masomo-admin/storage/kvstore"
	"github.com/trezcool/masomo-admin/store"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	c := newContainer()
	err := c.Invoke(func(cli *commandLine) error {
		defer cli.kv.Close()
		return cli.run(os.Args)
	})
	if err != nil {
		if !errors.Is(err, errHelp) {
			logger.Printf("\nerror: %s\n", dig.RootCause(err))
		}
		os.Exit(1)
	}
}

func newLogger(conf *core.Config) core.Logger {
	l := logsvc.NewRollbarLogger(logger, conf)
	l.Enable(!conf.Debug)
	return l
}

func newKVStore(conf *core.Config) (kvstore.Store, error) {
	return kvstore.OpenSQLite(context.Background(), conf.Settings.Path)
}

func newSettings(kv kvstore.Store, logger core.Logger) (*settings.Store, error) {
	st := settings.New(kv, logger)
	return st, st.Load(context.Background())
}

// newClient restores the token saved by the last login.
func newClient(conf *core.Config, kv kvstore.Store, logger core.Logger) (*apiclient.Client, error) {
	token, err := kv.Get(context.Background(), tokenKey)
	if err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, err
	}
	return apiclient.New(conf.API, apiclient.WithToken(string(token)), apiclient.WithLogger(logger)), nil
}

func newRegistry(c *apiclient.Client, logger core.Logger) (*store.Registry, error) {
	metrics, err := store.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	return store.NewRegistry(c, store.Deps{Metrics: metrics, Logger: logger}), nil
}

func newMessaging(c *apiclient.Client, logger core.Logger) *messaging.Service {
	return messaging.NewService(c.WhatsApp, logger)
}

func newCommandLine(
	conf *core.Config,
	c *apiclient.Client,
	kv kvstore.Store,
	st *settings.Store,
	reg *store.Registry,
	msgs *messaging.Service,
) *commandLine {
	return &commandLine{conf: conf, client: c, kv: kv, settings: st, stores: reg, msgs: msgs, out: os.Stdout}
}

// newContainer returns the dependency injection dig.Container of the CLI.
func newContainer() *dig.Container {
	c := dig.New()
	for _, ctor := range []interface{}{
		core.NewConfig,
		newLogger,
		newKVStore,
		newSettings,
		newClient,
		newRegistry,
		newMessaging,
		newCommandLine,
	} {
		if err := c.Provide(ctor); err != nil {
			log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
		}
	}
	return c
}
