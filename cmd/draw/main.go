// Interactive pool draw: choose a pool, draw a code, copy it to the clipboard
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/thesavant42/scorekeeper/internal/clipboard"
	"github.com/thesavant42/scorekeeper/internal/config"
	"github.com/thesavant42/scorekeeper/internal/db"
	"github.com/thesavant42/scorekeeper/internal/models"
	"github.com/thesavant42/scorekeeper/internal/pool"
	"github.com/thesavant42/scorekeeper/internal/ui"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "scorekeeper.yaml", "Path to YAML config file")
	dbPath := flag.String("db", "", "Path to SQLite database file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.PrintError("Failed to load config: %v", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Storage.Database = *dbPath
	}

	// Keep the log quiet so it does not fight the TUI
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})

	database, err := db.New(cfg.Storage.Database)
	if err != nil {
		ui.PrintError("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := run(context.Background(), pool.NewManager(database, logger)); err != nil {
		ui.PrintError("%v", err)
		database.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, pools *pool.Manager) error {
	summary, err := choosePool(ctx, pools)
	if err != nil || summary == nil {
		return err
	}

	fmt.Println(ui.RenderTitle("Pool: " + summary.Name))
	action := ui.ActionDraw
	for {
		switch action {
		case ui.ActionQuit:
			return nil

		case ui.ActionReset:
			p, err := pools.Reset(ctx, summary.ID)
			if err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			ui.PrintSuccess("Pool reset to %d codes", len(p.Codes))
			action, err = ui.PromptNextAction(len(p.Codes))
			if err != nil {
				return nil
			}

		case ui.ActionDraw:
			res, err := pools.Draw(ctx, summary.ID)
			if errors.Is(err, pool.ErrPoolEmpty) {
				ui.PrintInfo("Pool is empty")
				action, err = ui.PromptNextAction(0)
				if err != nil {
					return nil
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("draw failed: %w", err)
			}
			printDraw(res)
			action, err = ui.PromptNextAction(res.Remaining)
			if err != nil {
				return nil
			}
		}
	}
}

// choosePool returns nil when the user backs out
func choosePool(ctx context.Context, pools *pool.Manager) (*models.PoolSummary, error) {
	list, err := pools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	if len(list) == 0 {
		create, err := ui.ConfirmCreatePool()
		if err != nil || !create {
			return nil, nil
		}
		name, filter, err := ui.PromptNewPool()
		if err != nil {
			return nil, nil
		}
		p, err := pools.Create(ctx, pool.CreateRequest{Name: name, Filter: filter})
		if err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		s := pool.Summarize(*p)
		ui.PrintSuccess("Created pool %q with %d codes", s.Name, s.OriginCount)
		return &s, nil
	}

	idx, err := ui.RunPoolSelector(list)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, nil
	}
	return &list[idx], nil
}

func printDraw(res models.DrawResult) {
	fmt.Println()
	fmt.Println(ui.RenderCode(res.ScoreCode))
	if err := clipboard.WriteAll(res.ScoreCode); err != nil {
		ui.PrintInfo("Clipboard unavailable: %v", err)
	} else {
		ui.PrintSuccess("Copied to clipboard")
	}
	ui.PrintInfo("%d left", res.Remaining)
}
