package config

import "clawchat/internal/domain"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:  "~/.clawchat",
			LogLevel: "info",
		},
		Gateway: GatewayConfig{
			BaseURL:        "http://127.0.0.1:8093",
			ModelPrefix:    "openclaw",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			Driver:    "sqlite",
			DBPath:    "~/.clawchat/clawchat.db",
			KeyPrefix: "",
		},
		UI: UIConfig{
			Theme:           "dark",
			DefaultAgent:    "main",
			DefaultModel:    "minimax-portal/MiniMax-M2.1",
			ToastMillis:     3000,
			SessionPageSize: 20,
			Markdown:        true,
			WordWrap:        100,
		},
		Agents: domain.DefaultAgents(),
		Models: domain.DefaultModels(),
	}
}
