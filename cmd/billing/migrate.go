package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Vigilancia-api/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica las migraciones SQL pendientes",
	Example: `  billing migrate
  billing migrate --dir ./migrations`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("dir", "", "directorio de migraciones (por defecto DB_MIGRATIONS_DIR)")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = eng.cfg.DB.MigrationsDir
	}
	n, err := postgres.NewMigrator(eng.pool, os.DirFS(dir), eng.log).Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d migraciones aplicadas\n", n)
	return nil
}
