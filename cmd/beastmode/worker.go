package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phantomlabs/beastmode/tasks"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume the lead queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.close()

		if rt.redis == nil {
			return fmt.Errorf("worker requires REDIS_ADDR")
		}

		worker := tasks.NewWorker(rt.redis, cfg.LeadQueueKey, rt.deps.ProcessLead, logger)
		logger.Info("worker consuming lead queue")
		return worker.Run(ctx)
	},
}
