package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/config"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/docstore"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/docsync"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/identity"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/scheduler"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/server"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/snapshot"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/state"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/store"
	ws "github.com/UrsacheMihai/Productivity-App-V1/internal/websocket"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	email    string
	password string
	token    string
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync core and serve live views",
		Long: `Run the sync core in the configured mode and serve read-only views:

  GET /health        liveness
  GET /api/snapshot  current state as JSON
  GET /api/today     classes, events and routines for ?date=YYYY-MM-DD
  GET /ws            live feed of snapshots and notices

In row mode a session is recovered with --token or opened with --email and
--password (or PRODUCTIVITY_PASSWORD).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.password == "" {
				f.password = os.Getenv("PRODUCTIVITY_PASSWORD")
			}
			return a.serve(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.email, "email", "", "sign in as this account (row mode)")
	cmd.Flags().StringVar(&f.password, "password", "", "password for --email")
	cmd.Flags().StringVar(&f.token, "token", "", "resume an existing session token (row mode)")
	return cmd
}

func (a *app) serve(parent context.Context, f serveFlags) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cacheDB, closeCache, err := a.openCache(db)
	if err != nil {
		return err
	}
	defer closeCache()
	cache := snapshot.New(cacheDB)

	hub := ws.NewHub(a.logger)
	sched := scheduler.New(time.Local, a.logger)

	var view server.View
	switch a.cfg.Mode {
	case config.ModeDocument:
		ds, shutdown, err := a.startDocument(ctx, db, cache, hub, sched)
		if err != nil {
			return err
		}
		defer shutdown()
		view = server.DocView{Store: ds}
	default:
		st, err := a.startRows(ctx, db, cache, hub, sched, f)
		if err != nil {
			return err
		}
		defer st.Dispose()
		view = server.RowView{Store: st}
	}

	srv := server.New(view, hub, a.cfg.Server.AllowedOrigins, a.logger)
	unpublish := srv.Publish()
	defer unpublish()

	httpServer := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving", "addr", a.cfg.Server.Addr, "mode", a.cfg.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sched.Start()
	defer sched.Stop()
	a.logger.Info("scheduler started", "jobs", sched.Len())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *app) startRows(ctx context.Context, db *sql.DB, cache *snapshot.Cache, hub *ws.Hub, sched *scheduler.Scheduler, f serveFlags) (*state.Store, error) {
	provider := identity.New(db, a.cfg.Session.TTL, a.logger)
	st := state.New(state.Config{StorageKey: a.cfg.StorageKey}, state.Deps{
		Identity:  provider,
		Tasks:     store.NewTaskStore(db),
		Routines:  store.NewRoutineStore(db),
		Events:    store.NewEventStore(db),
		Timetable: store.NewTimetableStore(db),
		Cache:     cache,
		Notifier:  hub,
		Logger:    a.logger,
	})
	// Resume before Init so the restored snapshot meets its owner's session.
	if f.token != "" {
		sess, err := provider.Resume(ctx, f.token)
		if err != nil {
			st.Dispose()
			return nil, err
		}
		if sess == nil {
			a.logger.Warn("session token unknown or expired")
		}
	}
	if err := st.Init(ctx); err != nil {
		st.Dispose()
		return nil, err
	}
	if f.token == "" && f.email != "" {
		if err := st.SignIn(ctx, f.email, f.password); err != nil {
			st.Dispose()
			return nil, err
		}
	}

	if st.Session() != nil {
		if err := st.Refresh(ctx); err != nil {
			a.logger.Warn("initial refresh", "error", err)
		}
	} else {
		a.logger.Info("no session, serving cached state only")
	}

	err := errors.Join(
		sched.Add("session-sweep", a.cfg.Schedule.SessionSweep, func(ctx context.Context) error {
			n, err := provider.ExpireSessions(ctx)
			if n > 0 {
				a.logger.Info("expired sessions removed", "count", n)
			}
			return err
		}),
		sched.Add("refresh", a.cfg.Schedule.Refresh, func(ctx context.Context) error {
			if st.Session() == nil {
				return nil
			}
			return st.Refresh(ctx)
		}),
	)
	if err != nil {
		st.Dispose()
		return nil, err
	}
	return st, nil
}

func (a *app) startDocument(ctx context.Context, db *sql.DB, cache *snapshot.Cache, hub *ws.Hub, sched *scheduler.Scheduler) (*docsync.Store, func(), error) {
	remote, err := a.docStore(db)
	if err != nil {
		return nil, nil, err
	}
	ds := docsync.NewStore(docsync.NewReconciler(remote, a.logger), docsync.Options{
		StorageKey: a.cfg.StorageKey,
		Cache:      cache,
		Notifier:   hub,
		Logger:     a.logger,
	})
	shutdown := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ds.Flush(flushCtx); err != nil {
			a.logger.Warn("pending push not completed", "error", err)
		}
		ds.Dispose()
	}

	if err := ds.Init(ctx); err != nil {
		a.logger.Warn("local document not restored", "error", err)
	}
	if err := ds.Load(ctx); err != nil {
		a.logger.Warn("initial pull", "error", err)
	}

	if err := sched.Add("pull", a.cfg.Schedule.Pull, ds.Load); err != nil {
		shutdown()
		return nil, nil, err
	}

	if file, ok := remote.(*docstore.File); ok && a.cfg.Document.File.Watch {
		err := file.Watch(ctx, a.logger, func() {
			if err := ds.Load(ctx); err != nil {
				a.logger.Warn("reload after file change", "error", err)
			}
		})
		if err != nil {
			a.logger.Warn("document watch disabled", "error", err)
		}
	}
	return ds, shutdown, nil
}
