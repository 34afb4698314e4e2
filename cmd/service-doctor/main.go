package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"payment-record-service/internal/config"
	"payment-record-service/internal/observability"
)

// Check describes one diagnostic probe against a dependency.
type Check struct {
	Name     string
	Func     func(ctx context.Context) error
	Err      error
	Duration time.Duration
}

func main() {
	logger := observability.SetupLogger("development")

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	gatewayURL := "http://localhost" + cfg.Server.Port

	checks := []*Check{
		{
			Name: "PostgreSQL",
			Func: func(ctx context.Context) error {
				conn, err := pgx.Connect(ctx, cfg.Postgres.DSN)
				if err != nil {
					return err
				}
				defer conn.Close(ctx)
				return conn.Ping(ctx)
			},
		},
		{
			Name: "Redis",
			Func: func(ctx context.Context) error {
				rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
				defer rdb.Close()
				return rdb.Ping(ctx).Err()
			},
		},
		{
			Name: "Payment gateway",
			Func: func(ctx context.Context) error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayURL+"/health", nil)
				if err != nil {
					return err
				}
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("unexpected status %s", resp.Status)
				}
				return nil
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c *Check) {
			defer wg.Done()
			start := time.Now()
			c.Err = c.Func(ctx)
			c.Duration = time.Since(start)
		}(check)
	}
	wg.Wait()

	failed := 0
	for _, check := range checks {
		if check.Err != nil {
			failed++
			fmt.Printf("%s  %-16s %v (%s)\n", color.RedString("FAIL"), check.Name, check.Err, check.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Printf("%s    %-16s (%s)\n", color.GreenString("OK"), check.Name, check.Duration.Round(time.Millisecond))
	}

	if failed > 0 {
		fmt.Println(color.RedString("%d of %d checks failed", failed, len(checks)))
		os.Exit(1)
	}
	fmt.Println(color.GreenString("all checks passed"))
}
