package main

import (
	"fmt"
	"text/tabwriter"

	"storekeep/internal/backup"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database backups",
	Long: `Manage database backups in BACKUP_DIR.

Subcommands:
  create  run pg_dump now and wait for it
  list    show backup files, newest first`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Run pg_dump now",
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := openTool()
		if err != nil {
			return err
		}
		name, err := tool.CreateBackup(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup files",
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := openTool()
		if err != nil {
			return err
		}
		list, err := tool.ListBackups()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tSIZE\tCREATED")
		for _, b := range list {
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Filename, b.SizeBytes, b.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func openTool() (*backup.PgTool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return backup.NewPgTool(cfg.BackupDir, cfg.DatabaseURL, cfg.BinPaths(), db), nil
}

func init() {
	backupCmd.AddCommand(backupCreateCmd, backupListCmd)
}
