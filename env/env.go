// Package env resolves command line settings from flags, the process
// environment and .env files.
package env

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/agentuity/scriptcache/logger"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

type EnvLine struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// ParseEnvFile parses an environment file. A missing file yields no lines.
func ParseEnvFile(filename string) ([]EnvLine, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return []EnvLine{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	return ParseEnvBuffer(buf)
}

// ParseEnvBuffer parses KEY=value lines, skipping blanks and # comments.
func ParseEnvBuffer(buf []byte) ([]EnvLine, error) {
	var lines []EnvLine
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		lines = append(lines, EnvLine{Key: strings.TrimSpace(key), Val: dequote(strings.TrimSpace(val))})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan env")
	}
	return lines, nil
}

func dequote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// LoadEnvFile exports the lines of filename into the process environment
// without overriding variables that are already set.
func LoadEnvFile(filename string) error {
	lines, err := ParseEnvFile(filename)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, ok := os.LookupEnv(l.Key); ok {
			continue
		}
		if err := os.Setenv(l.Key, l.Val); err != nil {
			return errors.Wrapf(err, "setenv %s", l.Key)
		}
	}
	return nil
}

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// LogLevel reads --log-level, then SCRIPTCACHE_LOG_LEVEL, defaulting to info.
func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.LevelEnv, "info"), logger.LevelInfo)
}

// NewLogger returns a console logger, or a JSON logger when --log-format is json.
func NewLogger(cmd *cobra.Command) logger.Logger {
	level := LogLevel(cmd)
	if format, _ := cmd.Flags().GetString("log-format"); format == "json" {
		return logger.NewJSONLogger(level)
	}
	return logger.NewConsoleLogger(level)
}
