package hooks

import (
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextHook struct {
}

// NewContextHook returns a logrus hook that annotates every entry with the
// file:line of the logging callsite.
func NewContextHook() contextHook {
	return contextHook{}
}

func (hook contextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook contextHook) Fire(entry *logrus.Entry) error {
	lines := strings.Split(string(debug.Stack()), "\n")
	pastLoggingFrames := false
	for _, line := range lines {
		if strings.Contains(line, "context_hook.go:") || strings.Contains(line, "sirupsen/logrus") {
			pastLoggingFrames = true
			continue
		}
		// The first file:line frame below the logging machinery is the callsite.
		if pastLoggingFrames && strings.Contains(line, ".go:") {
			ctx := strings.Split(line, "heron/")
			entry.Data["file:line"] = strings.TrimSpace(ctx[len(ctx)-1])
			return nil
		}
	}
	return nil
}
