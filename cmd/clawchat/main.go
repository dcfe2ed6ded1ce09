package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"clawchat/internal/bus"
	"clawchat/internal/channel"
	"clawchat/internal/chat"
	"clawchat/internal/config"
	"clawchat/internal/domain"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version    = "0.1.0"
	configPath string // overridable via --config flag
)

func main() {
	root := &cobra.Command{
		Use:   "clawchat",
		Short: "ClawChat: terminal client for an OpenClaw gateway",
		Long:  "ClawChat keeps chat sessions with the gateway's agents, streams replies and browses agent workspaces.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(nil)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.clawchat/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(sessionsCmd())
	root.AddCommand(filesCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(restoreCmd())
	root.AddCommand(wizardCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file, falling back to defaults when it is
// missing so the client works out of the box.
func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not loaded, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.General.DataDir = config.ExpandPath(cfg.General.DataDir)
		cfg.Storage.DBPath = config.ExpandPath(cfg.Storage.DBPath)
	}
	setupLogger(cfg)
	return cfg
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.ExpandPath(resolveConfigPath())
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			cfg := config.Defaults()
			if err := os.MkdirAll(config.ExpandPath(cfg.General.DataDir), 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "dataDir", cfg.General.DataDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func chatCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.FetchSessions(ctx); err != nil {
				logger.Warn("working offline with local sessions", "err", err)
			}
			if agentID != "" {
				if !a.store.SelectAgent(ctx, agentID) {
					return fmt.Errorf("unknown agent: %s", agentID)
				}
			}

			cli := channel.NewCLI(channel.CLIConfig{
				Store:    a.store,
				Logger:   logger,
				Spinner:  isTerminal(os.Stdout),
				Markdown: cfg.UI.Markdown,
				WordWrap: cfg.UI.WordWrap,

				LineEditing: isTerminal(os.Stdin) && isTerminal(os.Stdout),
				HistoryFile: filepath.Join(config.ExpandPath(cfg.General.DataDir), "chat_history"),
			})
			return cli.Start(ctx)
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "agent to chat with")
	return cmd
}

func sendCmd() *cobra.Command {
	var (
		agentID string
		session string
		images  []string
	)
	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one message and print the streamed reply",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			switch {
			case session != "":
				if err := a.store.FetchSessions(ctx); err != nil {
					logger.Warn("fetch sessions failed", "err", err)
				}
				if err := a.store.SwitchSession(ctx, session); err != nil {
					return err
				}
			default:
				a.store.CreateSession(ctx, agentID)
			}
			for _, p := range images {
				ok, err := a.store.AddImageFile(p)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("not an image: %s", p)
				}
			}

			id := a.store.Bus().On(bus.EventMessageDelta, func(e bus.Event) {
				if kind, _ := e.Payload["kind"].(string); kind == string(domain.StreamToken) {
					fmt.Print(e.Payload["content"])
				}
			})
			defer a.store.Bus().Off(bus.EventMessageDelta, id)

			a.store.SetInput(strings.Join(args, " "))
			err = a.store.SendMessage(ctx)
			fmt.Println()
			if errors.Is(err, chat.ErrEmptyMessage) {
				return fmt.Errorf("nothing to send: give a message or --image")
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "agent for a new session")
	cmd.Flags().StringVarP(&session, "session", "s", "", "existing session id or key")
	cmd.Flags().StringSliceVarP(&images, "image", "i", nil, "image file to attach (repeatable)")
	return cmd
}

func sessionsCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.FetchSessions(ctx); err != nil {
				logger.Warn("showing local sessions only", "err", err)
			}
			a.store.SetFilterAgent(agentID)
			now := time.Now()
			current := a.store.Snapshot().CurrentSession
			for _, s := range a.store.DisplayedSessions() {
				mark := " "
				if s.ID == current {
					mark = "*"
				}
				fmt.Printf("%s %-28s %-12s %-16s %s\n", mark, s.ID, s.AgentID, chat.FormatTime(s.UpdatedAt, now), s.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "only sessions of this agent")
	return cmd
}

func filesCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "files [path]",
		Short: "List an agent's workspace directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if agentID != "" && !a.store.SelectAgent(ctx, agentID) {
				return fmt.Errorf("unknown agent: %s", agentID)
			}
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			if err := a.store.NavigateFiles(ctx, dir); err != nil {
				return err
			}
			for _, it := range a.store.Snapshot().Files.Items {
				if it.IsDir() {
					fmt.Printf("%-40s %s\n", it.Name+"/", "-")
					continue
				}
				fmt.Printf("%-40s %s\n", it.Name, chat.FormatFileSize(it.Size))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "agent whose workspace to list")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gateway status, agents and channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.store.FetchStatus(ctx)
			if err != nil {
				logger.Info("gateway", "url", cfg.Gateway.BaseURL, "status", st.Status, "err", st.Error)
				return nil
			}
			attrs := []any{"url", cfg.Gateway.BaseURL, "status", st.Status}
			if st.Gateway != nil {
				attrs = append(attrs, "port", st.Gateway.Port)
			}
			if st.NgrokURL != "" {
				attrs = append(attrs, "public", st.NgrokURL)
			}
			logger.Info("gateway", attrs...)

			if agents, err := a.store.FetchManageAgents(ctx); err == nil {
				logger.Info("agents", "count", len(agents))
			}
			if channels, err := a.store.FetchChannels(ctx); err == nil {
				for name, ch := range channels {
					logger.Info("channel", "name", name, "enabled", ch.Enabled, "accounts", ch.AccountCount)
				}
			}
			if jobs, err := a.store.FetchSchedules(ctx); err == nil {
				logger.Info("schedules", "jobs", len(jobs))
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. gateway.baseUrl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. ui.theme light)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			paths := config.ListPaths(config.Sanitize(cfg))
			for _, p := range config.SortedPaths(paths) {
				fmt.Printf("%s = %v\n", p, paths[p])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
