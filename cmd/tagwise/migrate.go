package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagwise/tagwise/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Bring the database schema up to the current version. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.Success("Database schema is up to date"))
			return nil
		},
	}
}
