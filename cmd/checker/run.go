package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/cache"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/verification"
)

func runCmd() *cobra.Command {
	var (
		mode     string
		phones   []string
		startArg string
		endArg   string
		details  bool
		format   string
		match    matchFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile the message store against the provider for a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(time.RFC3339, startArg)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			end, err := time.Parse(time.RFC3339, endArg)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, sync, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer sync()

			opts, err := defaultOptions(cfg)
			if err != nil {
				return err
			}
			if opts, err = match.apply(cmd, opts); err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := connectDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			store, err := newCache(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if rc, ok := store.(*cache.RedisCache); ok {
				defer rc.Close()
			}
			client, err := newProviderClient(cfg, store, logger)
			if err != nil {
				return err
			}
			producer := newProducer(cfg, logger)
			if producer != nil {
				defer producer.Close()
			}

			svc := newService(db, client, producer, opts, logger)
			rep, err := svc.Run(ctx, verification.Request{
				Mode:           mode,
				PhoneNumbers:   phones,
				Start:          start,
				End:            end,
				IncludeDetails: details,
			})
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), rep, format)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", verification.ModeNumbers, "numbers or window")
	cmd.Flags().StringSliceVar(&phones, "phone", nil, "phone numbers to check (numbers mode)")
	cmd.Flags().StringVar(&startArg, "start", "", "window start, RFC3339")
	cmd.Flags().StringVar(&endArg, "end", "", "window end, RFC3339")
	cmd.Flags().BoolVar(&details, "details", false, "include matched and unmatched detail")
	cmd.Flags().StringVar(&format, "format", FormatJSON, "output format: json, yaml or text")
	match.register(cmd)
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
