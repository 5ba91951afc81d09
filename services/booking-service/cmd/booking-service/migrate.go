package main

import (
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/appconfig"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)
			pool, err := openPool(cmd.Context(), cfg, true, logger)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		},
	}
}
