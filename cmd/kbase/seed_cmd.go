package main

import (
	"github.com/spf13/cobra"

	"kbase/internal/config"
	"kbase/internal/seed"
	"kbase/internal/store"
)

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load users and articles from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			return withStore(cfg, func(st *store.Store) error {
				result, err := seed.Apply(cmd.Context(), st, file)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"users": result.Users, "articles": result.Articles})
				}
				return writePlain("seeded %d users, %d articles\n", result.Users, result.Articles)
			})
		},
	}
}
