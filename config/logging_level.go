package config

import (
	"sync"

	"github.com/aidas-vision/aidas/logging"
)

var globalLogger struct {
	// These variables are initialized once at startup. No need for special synchronization.
	logger           logging.Logger
	cmdLineDebugFlag bool

	// The file level can change on every config reload.
	mu        sync.Mutex
	fileLevel string
}

// InitLoggingSettings initializes the global logging settings.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	if cmdLineDebugFlag {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.INFO)
	}
	logger.Info("Log level initialized: ", logger.GetLevel())
}

// UpdateFileConfigLevel is used to update the log level whenever a config file is re-read.
func UpdateFileConfigLevel(level string) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.fileLevel = level
	refreshLogLevelInLock()
}

func refreshLogLevelInLock() {
	if globalLogger.logger == nil {
		return
	}
	newLevel := logging.INFO
	if globalLogger.cmdLineDebugFlag {
		// The command line always wins.
		newLevel = logging.DEBUG
	} else if parsed, err := logging.LevelFromString(globalLogger.fileLevel); err == nil {
		newLevel = parsed
	}

	if globalLogger.logger.GetLevel() == newLevel {
		return
	}
	globalLogger.logger.Info("New log level: ", newLevel)
	globalLogger.logger.SetLevel(newLevel)
}
