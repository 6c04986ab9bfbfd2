package cmd

import (
	"time"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/config"
	"github.com/hangarshare/cli/pkg/syncx"
)

// channelConfig builds the websocket dialer config from configuration
func channelConfig() syncx.ChannelConfig {
	return syncx.ChannelConfig{
		Host:   config.GetString("realtime.host"),
		Port:   config.GetInt("realtime.port"),
		Path:   config.GetString("realtime.path"),
		UseTLS: config.GetBool("realtime.use_tls"),
	}
}

// subscriptionConfig builds a subscription config from configuration
func subscriptionConfig(entity api.EntityType) syncx.SubscriptionConfig {
	cfg := syncx.DefaultSubscriptionConfig(entity)
	cfg.Debounce = time.Duration(config.GetInt("realtime.debounce_ms")) * time.Millisecond
	cfg.BaseDelay = time.Duration(config.GetInt("realtime.reconnect_base_delay_ms")) * time.Millisecond
	cfg.MaxRetries = config.GetInt("realtime.max_reconnect_attempts")
	return cfg
}

func truncateString(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
