package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4rvnd/ara-whatsapp-verification-checker/internal/repositories/message"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/utils"
)

func importCmd() *cobra.Command {
	var (
		path    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load internal message records from a JSON file into the message store",
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

			var records []models.InternalMessageRecord
			if err := readJSONFile(path, &records); err != nil {
				return err
			}
			for i, r := range records {
				if err := utils.ValidateValue(r.ID, "required"); err != nil {
					return fmt.Errorf("record %d has no id", i)
				}
				if err := utils.ValidateValue(r.PhoneNumber, "required"); err != nil {
					return fmt.Errorf("record %s has no phone_number", r.ID)
				}
			}

			ctx := cmd.Context()
			db, err := connectDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if err := runMigrations(cfg, db, logger); err != nil {
					return err
				}
			}

			inserted, err := message.NewRepository(db, logger).CreateBatch(ctx, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d records\n", inserted, len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "JSON file of internal message records")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before importing")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
