package cli

import (
	"github.com/spf13/cobra"

	"github.com/folioworks/folio/pkg/storage"
)

func (c *CLI) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Create or upgrade the database schema and exit.

For sqlite this creates the tables and records the schema version; for
mongo it creates the collections' indexes. serve runs the same step on start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			spin := newSpinner(cmd.Context(), cmd.ErrOrStderr(), "Migrating "+cfg.Database.Driver+" database...")
			spin.Start()
			prog := newProgress(c.Logger)
			db, err := storage.Open(cmd.Context(), cfg.Database)
			if err != nil {
				spin.StopWithError("Migration failed")
				return err
			}
			defer db.Close()
			spin.Stop()
			prog.done("Migrated " + db.Driver + " database")

			printSuccess(out, "Schema is up to date")
			printKeyValue(out, "driver", db.Driver)
			switch db.Driver {
			case storage.DriverSQLite:
				printKeyValue(out, "path", cfg.Database.Path)
			case storage.DriverMongo:
				printKeyValue(out, "database", cfg.Database.Database)
			}
			return nil
		},
	}
}
