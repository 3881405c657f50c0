package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func newWatchCommand(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep tracking which profile matches the installed keyboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch(ctx, a())
		},
	}
}

func watch(ctx context.Context, a *app) error {
	interval, err := a.settings.WatchInterval()
	if err != nil {
		return err
	}

	a.switcher.OnChange = func(selected string) {
		if selected == "" {
			a.log.Infow("no profile matches the installed keyboards")
			return
		}
		a.log.Infow("profile selected", "profile", selected)
	}

	a.log.Infow("watching installed keyboards", "interval", interval)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		err := pollLoop(ctx, a, interval)
		if err != nil {
			errChan <- fmt.Errorf("poll: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		err := systemdNotifyLoop(ctx)
		if err != nil {
			errChan <- fmt.Errorf("systemd notify: %w", err)
		}
	}()

	err = <-errChan
	switch {
	case errors.Is(err, context.Canceled):
		a.log.Info("shutting down")
		wg.Wait()
		return nil
	case err != nil:
		return err
	}

	return nil
}

// pollLoop only returns once ctx is done; platform errors are logged and the
// previous selection is kept.
func pollLoop(ctx context.Context, a *app, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := a.switcher.Refresh(ctx); err != nil {
			a.log.Warnw("failed to refresh selection", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func systemdNotifyLoop(ctx context.Context) error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("notify systemd: %w", err)
	}
	if !supported {
		return nil
	}

	_, _ = daemon.SdNotify(false, "STATUS=Watching the installed keyboard layouts")

	t, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	if t == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(t / 2):
			_, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			if err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}
