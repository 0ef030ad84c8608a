package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/config"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/database"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/docstore"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/logging"
)

// app carries what every command needs once flags and config are resolved.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "productivity",
		Short:         "Sync core for the productivity planner",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if config.IsInvalid(err) {
				return fmt.Errorf("invalid configuration: %w (set it in the config file or as a PRODUCTIVITY_ environment variable)", err)
			}
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger, a.closeLog = logging.Setup(logging.Options{
				Level:      cfg.Log.Level,
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
			})
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (yaml, toml or json)")

	root.AddCommand(
		newServeCmd(a),
		newDocCmd(a),
		newSignupCmd(a),
	)
	return root
}

func (a *app) openDB() (*sql.DB, error) {
	db, err := database.Open(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.Database.Path, err)
	}
	return db, nil
}

// openCache returns the database backing the local snapshot cache and a
// close function. Without a dedicated cache path the main database is used.
func (a *app) openCache(main *sql.DB) (*sql.DB, func() error, error) {
	if a.cfg.Database.CachePath == "" {
		return main, func() error { return nil }, nil
	}
	db, err := database.Open(a.cfg.Database.CachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache %s: %w", a.cfg.Database.CachePath, err)
	}
	return db, db.Close, nil
}

// docStore builds the configured document backend. db is used by the sqlite
// backend only.
func (a *app) docStore(db *sql.DB) (docstore.Store, error) {
	d := a.cfg.Document
	switch d.Backend {
	case config.BackendFile:
		return docstore.NewFile(d.File.Path), nil
	case config.BackendSQLite:
		return docstore.NewSQLite(db, d.SQLite.Path), nil
	case config.BackendGitHub:
		return docstore.NewGitHub(docstore.GitHubConfig{
			BaseURL: d.GitHub.BaseURL,
			Owner:   d.GitHub.Owner,
			Repo:    d.GitHub.Repo,
			Path:    d.GitHub.Path,
			Branch:  d.GitHub.Branch,
			Token:   d.GitHub.Token,
		}, &http.Client{Timeout: 15 * time.Second}), nil
	case config.BackendS3:
		return docstore.NewS3(docstore.S3Config{
			Endpoint:  d.S3.Endpoint,
			Bucket:    d.S3.Bucket,
			Key:       d.S3.Key,
			Region:    d.S3.Region,
			AccessKey: d.S3.AccessKey,
			SecretKey: d.S3.SecretKey,
		}), nil
	}
	return nil, fmt.Errorf("unknown document backend %q", d.Backend)
}
