package main

import "github.com/caarlos0/env/v11"

// config is the process-wide configuration, bound from the
// environment. Grounded on the pack's struct-tag env binding
// convention (github.com/caarlos0/env): a single flat struct parsed
// once at startup rather than scattered os.Getenv calls.
type config struct {
	Port            string `env:"PORT" envDefault:"8089"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	BlueprintsDir   string `env:"BLUEPRINTS_DIR" envDefault:"./blueprints"`
	AuditDSN        string `env:"AUDIT_DSN"`
	MaxRecursion    int    `env:"MAX_RECURSION_DEPTH" envDefault:"0"`
	EventBusCapacity int   `env:"EVENT_BUS_CAPACITY" envDefault:"1024"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}
