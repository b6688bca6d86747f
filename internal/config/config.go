// Package config handles server configuration: built-in defaults, overlaid by
// environment variables, overlaid by command-line flags.
package config

import (
	"flag"
	"os"
	"time"
)

// Config holds runtime settings for the BBS server.
type Config struct {
	ListenAddr   string        // bind address for the BBS listener
	MetricsAddr  string        // bind address for the prometheus /metrics endpoint
	DatabasePath string        // sqlite database file
	IdleTimeout  time.Duration // how long a session waits for the next client line
	RecentLimit  int           // how many messages "read messages" shows
}

func (c *Config) LoadDefaults() {
	c.ListenAddr = ":2323"
	c.MetricsAddr = ":9090"
	c.DatabasePath = "./data/bbs.sqlite3"
	c.IdleTimeout = 300 * time.Second
	c.RecentLimit = 10
}

// Load builds a Config from defaults, environment, and os.Args flags.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.parseEnv()
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseEnv overlays the environment variables the container deployment sets.
func (c *Config) parseEnv() {
	if port := os.Getenv("BBS_PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	if path := os.Getenv("BBS_DB_PATH"); path != "" {
		c.DatabasePath = path
	}
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("bbs-server", flag.ContinueOnError)

	fs.StringVar(&c.ListenAddr, "addr", c.ListenAddr, "bbs listen address")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "metrics listen address")
	fs.StringVar(&c.DatabasePath, "db-path", c.DatabasePath, "path to sqlite database file")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", c.IdleTimeout, "idle kick timeout")
	fs.IntVar(&c.RecentLimit, "recent", c.RecentLimit, "number of recent messages to show")

	return fs.Parse(args)
}
