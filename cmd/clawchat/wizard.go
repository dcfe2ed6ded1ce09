package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"clawchat/internal/config"

	"github.com/spf13/cobra"
)

var storageDrivers = []struct {
	ID   string
	Desc string
}{
	{"sqlite", "Local SQLite file (default)"},
	{"redis", "Redis server, shared between machines"},
	{"memory", "In memory, nothing is kept"},
}

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactive setup: gateway → storage → appearance → save config",
		Long:  "Guides you through the gateway URL and token, the storage backend and the default agent and theme. Writes config to the path used by --config or default.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(os.Stdin, os.Stdout, resolveConfigPath())
		},
	}
}

func runWizard(in io.Reader, out io.Writer, cfgPath string) error {
	cfgPath = config.ExpandPath(cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Defaults()
	}

	reader := bufio.NewReader(in)
	prompt := func(def string) (string, error) {
		if def != "" {
			fmt.Fprintf(out, " [%s]: ", def)
		} else {
			fmt.Fprint(out, ": ")
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		s := strings.TrimSpace(line)
		if s == "" {
			return def, nil
		}
		return s, nil
	}
	pick := func(n int, def string) (int, error) {
		choice, err := prompt(def)
		if err != nil {
			return 0, err
		}
		var idx int
		if k, _ := fmt.Sscanf(choice, "%d", &idx); k != 1 || idx < 1 || idx > n {
			fmt.Sscanf(def, "%d", &idx)
		}
		return idx, nil
	}

	// Step 1: Gateway
	fmt.Fprintln(out, "\n--- Step 1: Gateway ---")
	fmt.Fprint(out, "Gateway URL")
	if cfg.Gateway.BaseURL, err = prompt(cfg.Gateway.BaseURL); err != nil {
		return err
	}
	fmt.Fprint(out, "Access token, or env var like ${CLAWCHAT_TOKEN} (empty for none)")
	tok, err := prompt(cfg.Gateway.Token)
	if err != nil {
		return err
	}
	cfg.Gateway.Token = tok

	// Step 2: Storage
	fmt.Fprintln(out, "\n--- Step 2: Storage ---")
	def := "1"
	for i, d := range storageDrivers {
		fmt.Fprintf(out, "  %d) %s — %s\n", i+1, d.ID, d.Desc)
		if d.ID == cfg.Storage.Driver {
			def = fmt.Sprint(i + 1)
		}
	}
	fmt.Fprintf(out, "Choose storage (1–%d)", len(storageDrivers))
	idx, err := pick(len(storageDrivers), def)
	if err != nil {
		return err
	}
	cfg.Storage.Driver = storageDrivers[idx-1].ID
	switch cfg.Storage.Driver {
	case "sqlite":
		fmt.Fprint(out, "Database file")
		if cfg.Storage.DBPath, err = prompt(cfg.Storage.DBPath); err != nil {
			return err
		}
	case "redis":
		redisURL := cfg.Storage.RedisURL
		if redisURL == "" {
			redisURL = "redis://localhost:6379/0"
		}
		fmt.Fprint(out, "Redis URL")
		if cfg.Storage.RedisURL, err = prompt(redisURL); err != nil {
			return err
		}
		fmt.Fprint(out, "Key namespace (empty for none)")
		if cfg.Storage.KeyPrefix, err = prompt(cfg.Storage.KeyPrefix); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "  Using storage: %s\n", cfg.Storage.Driver)

	// Step 3: Appearance
	fmt.Fprintln(out, "\n--- Step 3: Appearance ---")
	for _, a := range cfg.Agents {
		fmt.Fprintf(out, "  %s %-14s %s\n", a.Identity.Emoji, a.ID, a.Name)
	}
	fmt.Fprint(out, "Default agent")
	if cfg.UI.DefaultAgent, err = prompt(cfg.UI.DefaultAgent); err != nil {
		return err
	}
	fmt.Fprint(out, "Theme (dark/light)")
	if cfg.UI.Theme, err = prompt(cfg.UI.Theme); err != nil {
		return err
	}

	// Save
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nConfig saved to %s\n", cfgPath)
	fmt.Fprintln(out, "Next: run 'clawchat doctor' to check the setup, then 'clawchat chat'.")
	return nil
}
