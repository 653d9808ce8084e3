package main

import (
	"fmt"
	"time"

	"storekeep/internal/model"
	"storekeep/internal/repository"
	"storekeep/internal/service"
	"storekeep/internal/session"

	"github.com/spf13/cobra"
)

var (
	// seed-user flags
	seedUsername string
	seedPassword string
	seedRole     string
)

var seedUserCmd = &cobra.Command{
	Use:   "seed-user",
	Short: "Create an account or reset its password, role and active flag",
	Long: `Create an account or reset an existing active one.

Examples:
  storekeepctl seed-user --username root --password s3cret
  storekeepctl seed-user --username demo --password demo123 --role User`,
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := model.ParseRole(seedRole)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}

		// Seeding never issues sessions; the in-memory store keeps the service wiring complete.
		sessions := session.NewManager(session.NewMemoryStore(), cfg.SessionSecret, time.Hour)
		accounts := service.NewAccountService(
			repository.NewUserRepository(db),
			repository.NewReportRepository(db),
			sessions,
			service.NewBcryptHasher(cfg.BcryptCost),
		)
		created, err := accounts.SeedUser(cmd.Context(), seedUsername, seedPassword, role)
		if err != nil {
			return err
		}
		verb := "reset"
		if created {
			verb = "created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %q %s with role %s\n", seedUsername, verb, role)
		return nil
	},
}

func init() {
	seedUserCmd.Flags().StringVar(&seedUsername, "username", "", "Account name")
	seedUserCmd.Flags().StringVar(&seedPassword, "password", "", "Account password")
	seedUserCmd.Flags().StringVar(&seedRole, "role", string(model.RoleSuperAdmin), "User, Admin or SuperAdmin")
	_ = seedUserCmd.MarkFlagRequired("username")
	_ = seedUserCmd.MarkFlagRequired("password")
}
