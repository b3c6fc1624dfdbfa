package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ibroadcast/ibsync/internal/fakeremote"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	defaultAddr     = "127.0.0.1:8089"
	shutdownTimeout = 5 * time.Second
)

func newRootCmd() *cobra.Command {
	var (
		addr       string
		user       string
		password   string
		extensions []string
	)

	cmd := &cobra.Command{
		Use:   "ibfake",
		Short: "Run a local in-memory stand-in of the iBroadcast endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fake, userID, token := newFake(user, password, extensions, slog.Default())

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			base := "http://" + ln.Addr().String()
			slog.Info("ibfake", "status_url", base+fakeremote.StatusPath, "sync_url", base+fakeremote.SyncPath,
				"user", user, "user_id", userID, "token", token)
			return serve(cmd.Context(), ln, fake.Handler())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", defaultAddr, "Address to listen on")
	cmd.Flags().StringVarP(&user, "user", "u", "test@example.com", "Accepted username")
	cmd.Flags().StringVarP(&password, "password", "p", "test", "Accepted password")
	cmd.Flags().StringSliceVarP(&extensions, "extensions", "e", fakeremote.DefaultExtensions, "Advertised file extensions")
	return cmd
}

func newFake(user, password string, extensions []string, logger *slog.Logger) (*fakeremote.Server, string, string) {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext = strings.TrimSpace(ext); ext != "" {
			exts = append(exts, ext)
		}
	}

	fake := fakeremote.New(fakeremote.WithExtensions(exts...), fakeremote.WithLogger(logger))
	userID, token := fake.AddUser(user, password)
	return fake, userID, token
}

// serve runs until ctx is done, then shuts down gracefully
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("ibfake shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	gin.SetMode(gin.ReleaseMode)
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
