package device

import (
	"context"
	"log/slog"

	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
)

// SeverityLevel maps a validation message severity to the log level it is reported at
func SeverityLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) slog.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

type debugLogger struct {
	logger *slog.Logger
}

func (l debugLogger) callback(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	l.logger.Log(context.Background(), SeverityLevel(severity), data.Message,
		slog.String("Type", msgType.String()),
		slog.String("MessageIDName", data.MessageIDName),
	)

	return false
}

func debugMessengerCreateInfo(logger *slog.Logger) ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    debugLogger{logger: logger.With(slog.String("Source", "Validation"))}.callback,
	}
}
