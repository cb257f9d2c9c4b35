// Command notifier runs the Temporal worker that delivers order e-mails.
package main

import (
	"os"

	zlog "github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/phenrril/storefront/internal/app"
	"github.com/phenrril/storefront/internal/notify"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}
	logs := app.SetupLogger(cfg)
	defer logs.Close()

	host := cfg.TemporalHost
	if host == "" {
		host = client.DefaultHostPort
	}
	c, err := client.Dial(client.Options{HostPort: host, Namespace: cfg.TemporalNamespace})
	if err != nil {
		zlog.Fatal().Err(err).Str("host", host).Msg("unable to create temporal client")
	}
	defer c.Close()

	identity := "storefront-notifier-" + hostname()
	w := worker.New(c, cfg.NotifyTaskQueue, worker.Options{
		Identity:                           identity,
		MaxConcurrentActivityExecutionSize: 20,
	})
	w.RegisterWorkflow(notify.OrderNotificationWorkflow)
	w.RegisterActivity(notify.NewMailer(cfg.SMTP))

	zlog.Info().Str("queue", cfg.NotifyTaskQueue).Str("identity", identity).Msg("notifier worker starting")
	if err := w.Run(worker.InterruptCh()); err != nil {
		zlog.Fatal().Err(err).Msg("worker stopped")
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
