// Package config loads reelscript configuration.
//
// Values come from, in increasing precedence: built-in defaults, a TOML file
// (--config, $REELSCRIPT_CONFIG, or ~/.config/reelscript/config.toml), and
// environment variables. A .env file in the working directory is loaded into
// the environment first.
package config
