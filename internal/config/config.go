package config

import "fmt"

// Deployment environments. They pick the log format and level.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// AppName names the config directory, the user agent and the CLI.
const AppName = "notekeeper"

// ValidateEnv accepts the known environments; empty means local.
func ValidateEnv(env string) error {
	switch env {
	case "", EnvLocal, EnvDev, EnvProd:
		return nil
	}
	return fmt.Errorf("unknown app_env %q (want %s, %s or %s)", env, EnvLocal, EnvDev, EnvProd)
}
