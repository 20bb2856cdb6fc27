package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFiles overlays .env.local then .env onto the process environment,
// silently skipping a missing file and failing on anything else.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: loading %s: %w", file, err)
		}
	}
	return nil
}

// envVarPattern matches ${VAR}, ${VAR:-default}, and $VAR.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars walks a decoded YAML map recursively, expanding every string
// value's env var references in place before the map is decoded into Config.
func expandEnvVars(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = expandValue(v)
	}
	return out
}

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		return expandEnvVars(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item)
		}
		return out
	default:
		return v
	}
}

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if idx := strings.Index(inner, ":-"); idx != -1 {
				name, fallback := inner[:idx], inner[idx+2:]
				if val := os.Getenv(name); val != "" {
					return val
				}
				return fallback
			}
			return os.Getenv(inner)
		}
		return os.Getenv(match[1:])
	})
}
