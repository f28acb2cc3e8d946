package media

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

// loggerFactory routes pion's internal logging into the shared logger.
type loggerFactory struct{}

// NewLogger implements logging.LoggerFactory.
func (loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return scopedLogger{scope: "pion/" + scope}
}

type scopedLogger struct {
	scope string
}

var _ logging.LeveledLogger = scopedLogger{}

func (l scopedLogger) Trace(msg string) { logger.Tracef("%s: %s", l.scope, msg) }
func (l scopedLogger) Tracef(format string, args ...any) {
	logger.Tracef("%s: %s", l.scope, fmt.Sprintf(format, args...))
}
func (l scopedLogger) Debug(msg string) { logger.Tracef("%s: %s", l.scope, msg) }
func (l scopedLogger) Debugf(format string, args ...any) {
	logger.Tracef("%s: %s", l.scope, fmt.Sprintf(format, args...))
}
func (l scopedLogger) Info(msg string) { logger.Debugf("%s: %s", l.scope, msg) }
func (l scopedLogger) Infof(format string, args ...any) {
	logger.Debugf("%s: %s", l.scope, fmt.Sprintf(format, args...))
}
func (l scopedLogger) Warn(msg string) { logger.Warnf("%s: %s", l.scope, msg) }
func (l scopedLogger) Warnf(format string, args ...any) {
	logger.Warnf("%s: %s", l.scope, fmt.Sprintf(format, args...))
}
func (l scopedLogger) Error(msg string) { logger.Errorf("%s: %s", l.scope, msg) }
func (l scopedLogger) Errorf(format string, args ...any) {
	logger.Errorf("%s: %s", l.scope, fmt.Sprintf(format, args...))
}
