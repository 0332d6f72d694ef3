package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/spf13/cobra"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/reconcile"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/report"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/verification"
)

type matchFlags struct {
	batchSize int
	threshold float64
	workers   int
	scope     string
}

func (f *matchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "internal messages per batch (default from MATCH_BATCH_SIZE)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum similarity to accept a match (default from SIMILARITY_THRESHOLD)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "batches matched concurrently (default from MATCH_WORKERS)")
	cmd.Flags().StringVar(&f.scope, "scope", "", "consumption scope: batch or global (default from MATCH_SCOPE)")
}

// apply overrides opts with every flag the user set
func (f *matchFlags) apply(cmd *cobra.Command, opts reconcile.Options) (reconcile.Options, error) {
	if cmd.Flags().Changed("batch-size") {
		opts.BatchSize = f.batchSize
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = f.threshold
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = f.workers
	}
	if cmd.Flags().Changed("scope") {
		scope, err := reconcile.ParseScope(f.scope)
		if err != nil {
			return opts, err
		}
		opts.Scope = scope
	}
	return opts, opts.Validate()
}

func reconcileCmd() *cobra.Command {
	var (
		internalPath string
		externalPath string
		details      bool
		format       string
		match        matchFlags
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile exported message files without touching the database or provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, sync, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer sync()

			var internal []models.InternalMessageRecord
			if err := readJSONFile(internalPath, &internal); err != nil {
				return err
			}
			var external []models.ExternalMessageRecord
			if err := readJSONFile(externalPath, &external); err != nil {
				return err
			}

			opts, err := defaultOptions(cfg)
			if err != nil {
				return err
			}
			if opts, err = match.apply(cmd, opts); err != nil {
				return err
			}

			start, end := window(internal)
			svc := verification.NewService(nil, nil, nil, newCoordinator(logger), opts, logger)
			rep, err := svc.ReconcileRecords(cmd.Context(), internal, external, opts, report.Params{
				IncludeDetails:     details,
				WindowStart:        start,
				WindowEnd:          end,
				SubjectIdentifiers: phoneNumbers(internal),
			})
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), rep, format)
		},
	}

	cmd.Flags().StringVar(&internalPath, "internal", "", "JSON file of internal message records")
	cmd.Flags().StringVar(&externalPath, "external", "", "JSON file of provider message records")
	cmd.Flags().BoolVar(&details, "details", false, "include matched and unmatched detail")
	cmd.Flags().StringVar(&format, "format", FormatJSON, "output format: json, yaml or text")
	match.register(cmd)
	_ = cmd.MarkFlagRequired("internal")
	_ = cmd.MarkFlagRequired("external")

	return cmd
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// window spans the sent times of the records
func window(records []models.InternalMessageRecord) (time.Time, time.Time) {
	var start, end time.Time
	for i, r := range records {
		if i == 0 || r.SentAt.Before(start) {
			start = r.SentAt
		}
		if i == 0 || r.SentAt.After(end) {
			end = r.SentAt
		}
	}
	return start.UTC(), end.UTC()
}

// phoneNumbers returns the distinct phone numbers of the records, sorted
func phoneNumbers(records []models.InternalMessageRecord) []string {
	all := ectolinq.Map(records, func(r models.InternalMessageRecord) string {
		return r.PhoneNumber
	})
	seen := make(map[string]struct{}, len(all))
	numbers := make([]string, 0)
	for _, n := range all {
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)
	return numbers
}
