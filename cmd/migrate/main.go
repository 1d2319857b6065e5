package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/socialsync/configs"
	"github.com/spf13/cobra"
)

var (
	dbURL         string
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the socialsync database schema",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Println("Migration successful")
		return nil
	},
}

var downSteps int

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()

		if downSteps > 0 {
			err = m.Steps(-downSteps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Println("Rollback successful")
		return nil
	},
}

var forceVersion int

var forceCmd = &cobra.Command{
	Use:   "force",
	Short: "Mark a version as applied and clear the dirty flag",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()
		return m.Force(forceVersion)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer m.Close()

		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	},
}

func newMigrate() (*migrate.Migrate, error) {
	if dbURL == "" {
		dbURL = config.LoadConfig().PostgresURI
	}
	if dbURL == "" {
		return nil, errors.New("database url is required: set POSTGRES_URI or pass --db")
	}
	return migrate.New("file://"+migrationsDir, dbURL)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (defaults to POSTGRES_URI)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "migrations", "Directory for migration files")
	downCmd.Flags().IntVarP(&downSteps, "steps", "n", 0, "Number of migrations to roll back (0 rolls back all)")
	forceCmd.Flags().IntVar(&forceVersion, "version", 1, "Version to force")

	rootCmd.AddCommand(upCmd, downCmd, forceCmd, versionCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
