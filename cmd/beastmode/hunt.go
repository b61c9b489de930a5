package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phantomlabs/beastmode/graph"
)

var huntNiche string

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Run one pipeline hunt synchronously",
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

		svc, err := buildService(rt)
		if err != nil {
			return err
		}

		niche := huntNiche
		if niche == "" {
			niche = cfg.DefaultNiche
		}

		threadID := uuid.New().String()
		final, err := svc.RunHunt(ctx, threadID, niche, "")

		var interrupt *graph.Interrupt
		switch {
		case errors.As(err, &interrupt):
			fmt.Printf("hunt %s paused for approval at %s\n", threadID, interrupt.Node)
			fmt.Printf("resume with: POST /resume {\"thread_id\": %q, \"approve\": true}\n", threadID)
			return nil
		case err != nil:
			return fmt.Errorf("hunt %s failed: %w", threadID, err)
		default:
			fmt.Printf("hunt %s finished: niche %q status %s, %d leads\n",
				threadID, final.Niche, final.Status, len(final.Leads))
			return nil
		}
	},
}

func init() {
	huntCmd.Flags().StringVar(&huntNiche, "niche", "", "niche to research (default from config)")
}
