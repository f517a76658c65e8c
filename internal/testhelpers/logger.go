package testhelpers

import (
	"github.com/mkarhu/inquest/internal/logging"
	"io"
	"log/slog"
)

// NewLogger builds the debug-level logger repository and pipeline tests inject,
// writing to the given sink. Pass io.Discard to silence it or a buffer to
// assert on the output.
func NewLogger(logSink io.Writer) *slog.Logger {
	handler := logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	return slog.New(handler)
}
