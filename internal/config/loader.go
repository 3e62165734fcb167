package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
)

// DefaultEnvFile is loaded when present and no --env-file is given.
const DefaultEnvFile = ".env"

// Lookup resolves one named input. ok is false when the source has no value.
type Lookup func(name string) (value string, ok bool)

// Chain returns the first non-blank value found across lookups, in order.
func Chain(lookups ...Lookup) Lookup {
	return func(name string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
				return value, true
			}
		}
		return "", false
	}
}

// ActionInputs reads GitHub Actions inputs. The runner exports "jira-host" as
// INPUT_JIRA-HOST: spaces become underscores, hyphens are kept.
func ActionInputs(getenv func(string) (string, bool)) Lookup {
	if getenv == nil {
		getenv = os.LookupEnv
	}
	return func(name string) (string, bool) {
		return getenv("INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_")))
	}
}

// EnvVars reads plain environment variables: "jira-host" becomes JIRA_HOST.
func EnvVars(getenv func(string) (string, bool)) Lookup {
	if getenv == nil {
		getenv = os.LookupEnv
	}
	return func(name string) (string, bool) {
		return getenv(EnvName(name))
	}
}

// EnvName is the plain environment variable for an input name.
func EnvName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(name))
}

// MapLookup serves inputs from a map, mostly for tests and dry runs.
func MapLookup(values map[string]string) Lookup {
	return func(name string) (string, bool) {
		value, ok := values[name]
		return value, ok
	}
}

// LoadEnvFile preloads variables from a dotenv file without overriding the
// existing environment. A missing default file is ignored; a missing explicit
// file is a configuration error.
func LoadEnvFile(path string, explicit bool) error {
	if path == "" {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return internalerrors.Configuration("load_env_file", err)
	}

	if err := godotenv.Load(path); err != nil {
		return internalerrors.Configuration("load_env_file", err)
	}
	log.Debug().Str("file", path).Msg("Loaded environment file")
	return nil
}
