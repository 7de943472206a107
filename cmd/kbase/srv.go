package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"kbase/internal/blobstore"
	"kbase/internal/config"
	"kbase/internal/server"
	"kbase/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the kbase API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if purged, err := st.PurgeExpiredSessions(cmd.Context(), time.Now().UTC()); err != nil {
				logger.Warn("purging expired sessions failed", "error", err)
			} else if purged > 0 {
				logger.Info("purged expired sessions", "count", purged)
			}

			policy := policyFromConfig(cfg)
			blobs, err := blobstore.NewLocalDir(cfg.UploadsDir, policy)
			if err != nil {
				return err
			}

			srv := server.New(addr, st, blobs, policy, server.Options{
				DBPath:             cfg.DBPath,
				UploadsDir:         cfg.UploadsDir,
				MultipartMaxMemory: cfg.Attachments.MultipartMaxMemory,
			}, logger)
			return srv.ListenAndServe()
		},
	}
}

func policyFromConfig(cfg *config.Config) blobstore.Policy {
	return blobstore.Policy{
		MaxSizeBytes:      cfg.Attachments.MaxUploadBytes,
		AllowedExtensions: cfg.Attachments.AllowedExtensions,
		AllowedMediaTypes: cfg.Attachments.AllowedMediaTypes,
	}
}
