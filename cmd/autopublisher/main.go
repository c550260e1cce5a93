package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ztola/shopify-ai-seo/internal/app"
	"github.com/Ztola/shopify-ai-seo/internal/config"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "autopublisher failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	start := flag.String("start", "", "arm the schedule at the given HH:MM before entering the loop")
	stopSchedule := flag.Bool("stop", false, "disarm the schedule and exit")
	status := flag.Bool("status", false, "print the schedule status and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize app", "error", err)
		return err
	}
	defer application.Close()

	switch {
	case *status:
		sc, err := application.ScheduleStatus()
		if err != nil {
			return err
		}
		fmt.Printf("enabled=%v time_of_day=%s rotation_cursor=%d\n", sc.Enabled, sc.TimeOfDay, sc.RotationCursor)
		return nil
	case *stopSchedule:
		_, err := application.StopSchedule()
		return err
	case *start != "":
		if _, err := application.StartSchedule(*start); err != nil {
			return err
		}
	}

	if err := application.RunPublisher(ctx); err != nil {
		return fmt.Errorf("publisher run: %w", err)
	}
	return nil
}
