package config

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParse(t *testing.T) {
	lookupEnv := func(key string) (string, bool) {
		switch key {
		case "OPENAI_API_KEY":
			return "sk-test", true
		case "TAVILY_API_KEY":
			return "tvly-test", true
		case "INQUEST_SQLITE_URL":
			return ":memory:", true
		default:
			return "", false
		}
	}

	cfg, err := Parse(lookupEnv)
	require.NoError(t, err)
	require.Equal(t, "localhost:4000", cfg.Addr)
	require.Equal(t, ":memory:", cfg.SQLiteURL)
	require.Equal(t, "./outputs", cfg.OutputDir)
	require.Equal(t, ":6060", cfg.PprofPort)
	require.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	require.Equal(t, "tvly-test", cfg.TavilyAPIKey)
}

func TestParse_missingAPIKeys(t *testing.T) {
	_, err := Parse(func(string) (string, bool) { return "", false })
	require.Error(t, err)
}
