// Package config defines the explicit configuration object that is constructed
// once at process start and passed into each component. Nothing else in the
// codebase reads the environment.
package config

import (
	"github.com/mkarhu/inquest/internal/envstruct"
	"github.com/mkarhu/inquest/internal/errors"
)

type Config struct {
	// Addr is the listen address for the web front end.
	Addr string `env:"INQUEST_ADDR" envDefault:"localhost:4000"`
	// SQLiteURL is the path to the SQLite database file or ":memory:".
	SQLiteURL string `env:"INQUEST_SQLITE_URL" envDefault:"./inquest.sqlite"`
	// OutputDir is the directory where per-run report artifacts are written.
	OutputDir string `env:"INQUEST_OUTPUT_DIR" envDefault:"./outputs"`
	// PprofPort is the loopback port for the profiling server.
	PprofPort string `env:"INQUEST_PPROF_PORT" envDefault:":6060"`
	// OpenAIAPIKey authenticates completion and embedding calls.
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	// TavilyAPIKey authenticates web-search calls.
	TavilyAPIKey string `env:"TAVILY_API_KEY"`
}

// Parse builds a Config from the given environment lookup function, which has
// the same signature as [os.LookupEnv].
func Parse(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config from environment")
	}
	return cfg, nil
}
