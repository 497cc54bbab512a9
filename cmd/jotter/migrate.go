package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jotter/cmd/internal/app"
	"jotter/cmd/internal/migrate"
)

var (
	printOnly     bool
	migrateSchema string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the jotter tables in JOTTER_DATABASE_URL",
	Long: `Apply the embedded schema to the database named by JOTTER_DATABASE_URL
under JOTTER_DB_SCHEMA. Statements are idempotent, so re-running is safe.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if printOnly {
			sql, err := migrate.SQL(migrateSchema)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), sql)
			return err
		}
		return app.Migrate(cmd.Context())
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema SQL instead of applying it")
	migrateCmd.Flags().StringVar(&migrateSchema, "schema", "jotter", "Schema name used with --print")
	rootCmd.AddCommand(migrateCmd)
}
