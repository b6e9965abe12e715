// Package config defines the configuration for a presence shard.
//
// Regardless of how the engine is embedded, directly from Go code or behind
// a host's own option surface, it uses the Config object defined in this
// package to store and forward configuration options. On top of these
// options, the engine relies on a data directory, defined by Config.DataDir,
// where Load expects to find an optional presence.toml file. Every option
// can also be overridden with a PRESENCE_* environment variable.
package config
