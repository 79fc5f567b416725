package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/dance.report/internal/db"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the results database schema",
	}

	// Opened without migrating so the subcommands control the schema.
	open := func() (*db.DB, error) { return db.OpenDB(a.dbPath, a.log.Named("db")) }

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := open()
				if err != nil {
					return err
				}
				defer database.Close()
				if err := database.MigrateUp(db.MigrationsFS()); err != nil {
					return err
				}
				return printStatus(cmd, database)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := open()
				if err != nil {
					return err
				}
				defer database.Close()
				if err := database.MigrateDown(db.MigrationsFS()); err != nil {
					return err
				}
				return printStatus(cmd, database)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current and latest schema versions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := open()
				if err != nil {
					return err
				}
				defer database.Close()
				return printStatus(cmd, database)
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations, clearing the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				database, err := open()
				if err != nil {
					return err
				}
				defer database.Close()
				if err := database.MigrateForce(db.MigrationsFS(), v); err != nil {
					return err
				}
				return printStatus(cmd, database)
			},
		},
	)
	return cmd
}

func printStatus(cmd *cobra.Command, database *db.DB) error {
	st, err := database.MigrationStatus(db.MigrationsFS())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Schema version %d of %d", st.Current, st.Latest)
	if st.Dirty {
		fmt.Fprint(out, " (dirty)")
	}
	if st.Pending() {
		fmt.Fprint(out, ", migrations pending")
	}
	_, err = fmt.Fprintln(out)
	return err
}
