package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/cloudflare/tableflip"
	"go.uber.org/zap"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = defaultReadTimeout
	shutdownTimeout     = 30 * time.Second
)

// GraceServer serves handler on addr. On Linux and macOS SIGHUP hands the listening
// socket to a freshly started binary; SIGTERM and SIGINT drain connections and exit.
func GraceServer(addr string, handler http.Handler) error {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		L().Warn("graceful upgrade not supported on this platform", zap.String("os", runtime.GOOS))
		srv.Addr = addr
		return serveUntilSignal(srv, nil)
	}

	upg, err := tableflip.New(tableflip.Options{})
	if err != nil {
		return err
	}
	defer upg.Stop()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGHUP)
		for range sig {
			L().Info("received SIGHUP, upgrading server")
			if err := upg.Upgrade(); err != nil {
				L().Error("upgrade failed", zap.Error(err))
			}
		}
	}()

	// Listen must be called before Ready
	ln, err := upg.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveUntilSignal(srv, &upgradeHooks{upg: upg, ln: ln})
}

type upgradeHooks struct {
	upg *tableflip.Upgrader
	ln  net.Listener
}

func serveUntilSignal(srv *http.Server, hooks *upgradeHooks) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if hooks != nil {
			err = srv.Serve(hooks.ln)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var exit <-chan struct{}
	if hooks != nil {
		if err := hooks.upg.Ready(); err != nil {
			return err
		}
		exit = hooks.upg.Exit()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-exit:
		L().Info("new process is ready, draining old server")
	case sig := <-stop:
		L().Info("shutting down HTTP server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
