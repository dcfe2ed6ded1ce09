package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clawchat/internal/config"
	"clawchat/internal/domain"
	"clawchat/internal/gateway"
	"clawchat/internal/storage"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your ClawChat setup",
		Long: `Verifies that ClawChat's configuration, storage backend and gateway
are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.ExpandPath(resolveConfigPath())
			fmt.Printf("ClawChat Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			var cfg *config.Config
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("not found at %s, using defaults", cfgPath))
				warned++
				cfg = config.Defaults()
				cfg.Storage.DBPath = config.ExpandPath(cfg.Storage.DBPath)
			} else {
				printPass("Config file", cfgPath)
				passed++

				// 2. Config loads and validates
				c, err := config.Load(cfgPath)
				if err != nil {
					printFail("Config validation", err.Error())
					failed++
					fmt.Printf("\n%d passed, %d failed\n", passed, failed)
					return fmt.Errorf("invalid config")
				}
				printPass("Config validation", "valid")
				passed++
				cfg = c
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			// 3. Storage backend readable and writable
			if extra, err := checkStorage(ctx, cfg.Storage); err != nil {
				printFail("Storage", err.Error())
				failed++
			} else {
				printPass("Storage", storageDetail(cfg.Storage)+extra)
				passed++
			}

			// 4. Gateway reachable
			gw := gateway.NewClient(gateway.ClientConfig{
				BaseURL: cfg.Gateway.BaseURL,
				Token:   cfg.Gateway.Token,
				Timeout: 5 * time.Second,
				Logger:  logger,
			})
			if st, err := gw.Status(ctx); err != nil {
				printFail("Gateway", fmt.Sprintf("%s: %v", cfg.Gateway.BaseURL, err))
				failed++
			} else if st.Status != domain.StatusOnline {
				printWarn("Gateway", fmt.Sprintf("%s reports %s", cfg.Gateway.BaseURL, st.Status))
				warned++
			} else {
				printPass("Gateway", cfg.Gateway.BaseURL+" online")
				passed++
			}

			// 5. Token
			if cfg.Gateway.Token == "" {
				printWarn("Gateway token", "not set (fine for a local gateway)")
				warned++
			} else {
				printPass("Gateway token", "configured")
				passed++
			}

			// 6. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running ClawChat.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nClawChat should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! ClawChat is ready to run.\n")
			}
			return nil
		},
	}
}

const doctorKey = "clawchat_doctor_probe"

// checkStorage opens the configured backend, round-trips a probe key and
// describes what is stored.
func checkStorage(ctx context.Context, cfg config.StorageConfig) (string, error) {
	kv, err := storage.Open(cfg, logger)
	if err != nil {
		return "", fmt.Errorf("cannot open: %w", err)
	}
	defer kv.Close()

	if err := kv.Set(ctx, doctorKey, "ok"); err != nil {
		return "", fmt.Errorf("not writable: %w", err)
	}
	v, ok, err := kv.Get(ctx, doctorKey)
	if err != nil || !ok || v != "ok" {
		return "", fmt.Errorf("probe read back failed: %v", err)
	}
	_ = kv.Delete(ctx, doctorKey)

	local := storage.NewLocal(kv, logger)
	extra := fmt.Sprintf(" (%d sessions, %d message logs", len(local.Sessions(ctx).Sessions), len(local.MessageKeys(ctx)))
	if sq, ok := kv.(*storage.SQLiteKV); ok {
		if ver, err := sq.SchemaVersion(); err == nil {
			extra += fmt.Sprintf(", schema v%d", ver)
		}
	}
	return extra + ")", nil
}

func storageDetail(cfg config.StorageConfig) string {
	switch cfg.Driver {
	case "redis":
		return "redis " + config.Sanitize(&config.Config{Storage: cfg}).Storage.RedisURL
	case "memory":
		return "memory (nothing is kept between runs)"
	default:
		return "sqlite " + cfg.DBPath
	}
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
