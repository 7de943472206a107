package main

import (
	"github.com/spf13/cobra"

	"kbase/internal/config"
	"kbase/internal/store"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				info, err := st.StoreInfo(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{
						"version":        version,
						"db_path":        cfg.DBPath,
						"uploads_dir":    cfg.UploadsDir,
						"schema_version": info.SchemaVersion,
						"users":          info.UserCount,
						"articles":       info.ArticleCount,
						"attachments":    info.AttachCount,
					})
				}
				if err := writePlain("db: %s\nuploads: %s\nschema: v%d\n", cfg.DBPath, cfg.UploadsDir, info.SchemaVersion); err != nil {
					return err
				}
				return writePlain("users: %d\narticles: %d\nattachments: %d\n", info.UserCount, info.ArticleCount, info.AttachCount)
			})
		},
	}
}
