package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calldesk/calldesk-cli/internal/mock"
)

func newMockCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "mock", Short: "Local mock backend"}
	cmd.AddCommand(newMockServeCmd(app))
	return cmd
}

type serveFlags struct {
	addr    string
	latency time.Duration
	seed    int
}

func newMockServeCmd(app *App) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calls API from memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", f.addr)
			if err != nil {
				return writeFailure(cmd, app, "listen_failed", err, "Pick another --addr.", map[string]any{"addr": f.addr})
			}
			srv := newMockServer(app, f)
			log := app.logger()
			log.Info("mock server listening", zap.String("addr", ln.Addr().String()), zap.Int("seed", f.seed), zap.Duration("latency", f.latency))
			if err := writeData(cmd, app, nil, map[string]any{"addr": "http://" + ln.Addr().String()}); err != nil {
				return err
			}
			return serve(ctx, srv, ln, log)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "127.0.0.1:8090", "Listen address")
	cmd.Flags().DurationVar(&f.latency, "latency", 150*time.Millisecond, "Artificial latency per request")
	cmd.Flags().IntVar(&f.seed, "seed", 60, "Number of seeded calls")
	return cmd
}

func newMockServer(app *App, f serveFlags) *http.Server {
	store := mock.New(mock.WithLatency(f.latency))
	store.Seed(f.seed)
	return &http.Server{
		Handler:           mock.Handler(store, app.logger().Named("mock")),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serve runs srv until ctx ends, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("mock server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
