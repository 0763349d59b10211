package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/lojasmm/discordui/internal/webhook"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP interactions endpoint",
		Flags: []cli.Flag{rolesFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireHTTP(); err != nil {
				return err
			}
			pub, err := webhook.ParsePublicKey(a.cfg.DiscordPublicKey)
			if err != nil {
				return err
			}
			if err := a.registerCommands(ctx); err != nil {
				return err
			}

			hook := webhook.NewHandler(pub, a.ui, a.log)

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)

			r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			hook.Routes(r)

			srv := &http.Server{
				Addr:         ":" + a.cfg.Port,
				Handler:      r,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go a.maintain(ctx)

			errc := make(chan error, 1)
			go func() {
				a.log.Info("discordui: listening", "port", a.cfg.Port)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
			}()

			select {
			case err := <-errc:
				return fmt.Errorf("server: %w", err)
			case <-ctx.Done():
			}
			a.log.Info("discordui: shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			hook.Wait()
			a.log.Info("discordui: stopped")
			return nil
		},
	}
}
