package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"waitlist-service/core/constants"
	"waitlist-service/core/logger"
	"waitlist-service/core/queue"
	"waitlist-service/core/server"
	"waitlist-service/modules/waitlist/service"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process offer deadlines and periodic sweeps from the task queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return errors.New("worker needs REDIS_ADDR")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app, err := server.NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			redisCfg := queue.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

			srv := queue.NewServer(redisCfg, cfg.Worker.Concurrency)
			srv.HandleFunc(constants.TaskOfferExpire, service.OfferExpireHandler(app.Waitlist.Tracker))
			srv.HandleFunc(constants.TaskWaitlistSweep, service.SweepHandler(app.Waitlist.Sweeper))

			sched := queue.NewScheduler(redisCfg, cfg.Location())
			if err := sched.Register(cfg.Worker.SweepCron, constants.TaskWaitlistSweep); err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- sched.Run(ctx) }()

			logger.Info("Worker:Run", "concurrency", cfg.Worker.Concurrency, "sweep_cron", cfg.Worker.SweepCron)
			if err := srv.Run(ctx); err != nil {
				return err
			}
			return <-errCh
		},
	}
}
