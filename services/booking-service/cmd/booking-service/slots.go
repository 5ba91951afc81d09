package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/appconfig"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/engine"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	var (
		meetingID string
		date      string
	)
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the bookable slots of a meeting on one day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			day, err := time.ParseInLocation(time.DateOnly, date, cfg.Location)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			c := cfg.Defaults
			flags := cmd.Flags()
			for name, dst := range map[string]*int{
				"buffer-before":     &c.BufferBeforeMinutes,
				"buffer-after":      &c.BufferAfterMinutes,
				"min-advance-hours": &c.MinAdvanceHours,
				"max-advance-days":  &c.MaxAdvanceDays,
			} {
				if flags.Changed(name) {
					if *dst, err = flags.GetInt(name); err != nil {
						return err
					}
				}
			}

			logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)
			pool, err := openPool(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			eng := engine.New(storage.NewPostgresStore(pool), nil, logger)
			slots, err := eng.GenerateSlots(cmd.Context(), meetingID, day, c)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, s := range slots {
				if err := enc.Encode(map[string]string{
					"start_time": s.Start.Format(time.RFC3339),
					"end_time":   s.End.Format(time.RFC3339),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&meetingID, "meeting", "", "meeting definition id")
	cmd.Flags().StringVar(&date, "date", "", "day to list, YYYY-MM-DD in TIMEZONE")
	cmd.Flags().Int("buffer-before", 0, "buffer before existing bookings, minutes")
	cmd.Flags().Int("buffer-after", 0, "buffer after existing bookings, minutes")
	cmd.Flags().Int("min-advance-hours", 0, "minimum notice in hours")
	cmd.Flags().Int("max-advance-days", model.UnlimitedAdvanceDays, "booking horizon in days (-1 = unlimited)")
	_ = cmd.MarkFlagRequired("meeting")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
