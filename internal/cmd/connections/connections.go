// Package connections parses connections service flags and launches the service.
package connections

import (
	"context"
	"flag"

	entrypoint "github.com/shawnlauzon/belong-platform/internal/platform/cmd"
	server "github.com/shawnlauzon/belong-platform/internal/services/connections/app"
)

// Config holds connections command configuration.
type Config struct {
	Port int `env:"BELONG_CONNECTIONS_PORT" envDefault:"8090"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The connections gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the connections service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceConnections, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
