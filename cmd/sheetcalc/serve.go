package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.alis.build/alog"
	"golang.org/x/sync/errgroup"

	"github.com/vogtb/sheetcalc/packages/config"
	"github.com/vogtb/sheetcalc/packages/server"
	"github.com/vogtb/sheetcalc/packages/spreadsheet"
	"github.com/vogtb/sheetcalc/packages/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Share a grid with websocket clients",
		Long: `Serve one grid over HTTP.

Endpoints:
  GET /grid  the current grid with derived state, as JSON
  /ws        websocket edits, e.g. {"cell":"A1","text":"5"}

With --grid the named grid is loaded from the database on start and saved
back on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), name)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().StringVar(&name, "grid", "", "name of the stored grid to serve")
	a.v.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) serve(ctx context.Context, name string) error {
	grid := spreadsheet.NewGrid()

	var st *store.Store
	if name != "" {
		var err error
		if st, err = a.openStore(ctx); err != nil {
			return err
		}
		defer st.Close()

		loaded, err := st.Load(ctx, name)
		switch {
		case err == nil:
			grid = loaded
		case spreadsheet.CodeOf(err) == spreadsheet.NotFound:
			alog.Infof(ctx, "serve: starting new grid %q", name)
		default:
			return err
		}
	}

	srv := server.New(server.NewSession(a.engine, grid))
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		alog.Infof(gctx, "serve: listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if st != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if saveErr := st.Save(saveCtx, name, srv.Session().Snapshot()); saveErr != nil {
			alog.Errorf(ctx, "serve: save %q: %v", name, saveErr)
			return errors.Join(err, saveErr)
		}
	}
	alog.Infof(ctx, "serve: stopped")
	return err
}
