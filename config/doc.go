// Package config reads service configuration with viper and godotenv.
//
//	var cfg Config
//	err := config.LoadConfig("scribe", &cfg)
//
// The first of cmd/<service>/config.yml and config.yml found in the
// working directory or up to two parents is read. Any key can then be set
// from the environment by its path in upper case with underscores, so
// CALLBACK_SIGNING_SECRET sets callback.signing_secret.
package config
