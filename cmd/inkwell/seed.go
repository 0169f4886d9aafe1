package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/thebtf/inkwell/internal/db"
	"github.com/thebtf/inkwell/internal/seed"
)

var (
	seedUsers   int
	seedPosts   int
	seedWorkers int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demonstration data",
	Long: `Load demonstration users, categories, posts and comments.

Safe to re-run: rows that already exist are skipped.

Example:
  inkwell seed --users 20 --posts 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.NewStore(db.Config{
			Driver:   cfg.Database.Driver,
			DSN:      cfg.Database.BuildDSN(),
			MaxConns: cfg.Database.MaxConns,
			LogLevel: logger.Silent,
		})
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		opts := seed.DefaultOptions()
		opts.Users = seedUsers
		opts.PostsPerUser = seedPosts
		opts.Workers = seedWorkers

		if err := seed.Run(cmd.Context(), store, opts); err != nil {
			return err
		}
		fmt.Printf("Seeded %d users with %d posts each\n", opts.Users, opts.PostsPerUser)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 8, "number of users to create")
	seedCmd.Flags().IntVar(&seedPosts, "posts", 3, "posts per user")
	seedCmd.Flags().IntVar(&seedWorkers, "workers", 4, "concurrent seed workers")
	rootCmd.AddCommand(seedCmd)
}
