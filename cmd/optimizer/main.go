package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Ztola/shopify-ai-seo/internal/app"
	"github.com/Ztola/shopify-ai-seo/internal/config"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "optimizer failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ids := flag.String("ids", "", "comma-separated product ids to optimize")
	force := flag.Bool("force", false, "re-optimize products already marked optimized")
	flag.Parse()

	productIDs, err := parseIDs(*ids)
	if err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return fmt.Errorf("no product ids given (use -ids 1,2,3)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize app", "error", err)
		return err
	}
	defer application.Close()

	ledger, err := application.RunBatch(ctx, productIDs, *force)
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}

	out, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func parseIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
