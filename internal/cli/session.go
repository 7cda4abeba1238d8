package cli

import (
	"github.com/spf13/cobra"

	"github.com/folioworks/folio/pkg/config"
)

func (c *CLI) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored sign-in sessions",
	}
	cmd.AddCommand(c.sessionCleanupCommand())
	return cmd
}

func (c *CLI) sessionCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired sessions",
		Long: `Delete expired sessions from the configured store.

File-backed sessions accumulate on disk until swept. Redis expires
sessions on its own and memory sessions do not outlive the server, so
for those backends this is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cfg.Session.Backend != config.BackendFile {
				printInfo(out, "Nothing to clean for the %s session backend", cfg.Session.Backend)
				return nil
			}
			b := &backends{}
			if err := b.openSessions(cfg.Session); err != nil {
				return err
			}
			defer b.Close()

			if err := b.sessions.Cleanup(cmd.Context()); err != nil {
				return err
			}
			printSuccess(out, "Expired sessions removed")
			printDetail(out, "Directory: %s", cfg.Session.Dir)
			return nil
		},
	}
}
