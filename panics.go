package aif

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

type PanicLogger func(funcName string, err any, stack []byte, fields ...map[string]any)

// MakePanicHandler returns a deferrable recover that reports through logger.
func MakePanicHandler(logger PanicLogger) func(funcName string, fields ...map[string]any) {
	return func(funcName string, fields ...map[string]any) {
		if err := recover(); err != nil {
			fullStack := make([]byte, 8096)
			n := runtime.Stack(fullStack, false)
			fullStack = fullStack[:n]

			logger(funcName, err, cleanStackTrace(fullStack), fields...)
		}
	}
}

// LoggerPanicHandler reports recovered panics on logger at error level.
func LoggerPanicHandler(logger Logger) PanicLogger {
	logger = NormalizeLogger(logger)
	return func(funcName string, err any, stack []byte, fields ...map[string]any) {
		var sb strings.Builder

		sb.WriteString(fmt.Sprintf("recovered from panic in %s: %v (%T)\n", funcName, err, err))

		if len(fields) > 0 && fields[0] != nil {
			keys := make([]string, 0, len(fields[0]))
			for k := range fields[0] {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				sb.WriteString(fmt.Sprintf("  %s: %v\n", k, fields[0][k]))
			}
		}

		sb.WriteString("stack:\n")
		sb.Write(stack)

		logger.Error("%s", sb.String())
	}
}

func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	// drop the panic() frame and its file reference
	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		lines = lines[panicLineIndex+2:]
	}

	return []byte(strings.Join(lines, "\n"))
}
