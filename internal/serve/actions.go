package serve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-insight/internal/app"
	"github.com/dtnitsch/news-insight/internal/common"
	"github.com/dtnitsch/news-insight/pkg/gateway"
	"github.com/dtnitsch/news-insight/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func open(c *cli.Context) *app.App {
	a, err := app.FromCLI(c)
	if err != nil {
		app.Logger(c).Error("failed to initialize", "error", err)
		os.Exit(2)
	}
	return a
}

// ServeAction runs the HTTP and WebSocket server until interrupted.
func ServeAction(c *cli.Context) error {
	a := open(c)
	defer a.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.Router, a.Hub, a.Gateway, a.Logger)
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(a.Config.ListenAddr)
	}()

	a.Logger.Info("Server started", "addr", a.Config.ListenAddr, "backend", a.Gateway.Backend())
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// StatusAction prints the selected backend and each capability's
// availability.
func StatusAction(c *cli.Context) error {
	a := open(c)
	defer a.Close()

	status := map[string]any{
		"backend":      a.Gateway.Backend(),
		"capabilities": a.Gateway.Status(c.Context),
	}
	return common.Write(os.Stdout, c.String("format"), status, nil)
}

// PullAction downloads a capability's model and reports progress on
// stderr.
func PullAction(c *cli.Context) error {
	name := gateway.CapabilityName(c.String("capability"))
	a := open(c)
	defer a.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := a.Gateway.Download(ctx, name)
	if errors.Is(err, gateway.ErrModelUnavailable) {
		return fmt.Errorf("backend %s cannot provide %s", a.Gateway.Backend(), name)
	}
	if err != nil {
		return err
	}
	defer sub.Close()

	for p := range sub.Events() {
		if p.Done {
			fmt.Fprintln(os.Stderr)
			if p.Err != nil {
				return fmt.Errorf("download failed: %w", p.Err)
			}
			fmt.Printf("%s ready\n", name)
			return nil
		}
		if !c.Bool("quiet") {
			fmt.Fprintf(os.Stderr, "\r%-24s %5.1f%%", p.Status, p.Loaded*100)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("download ended without completing")
}
