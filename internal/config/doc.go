// Package config provides the configuration model for weakbus.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority (cmd/weakbus)
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← WEAKBUS_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← .toml, .yaml or .yml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// A missing config file is not an error; the defaults apply.
//
// # Example
//
//	[bus]
//	identifier = "ui"
//	initial_capacity = 32
//	enforcement = "owner"
//
//	[logging]
//	level = "debug"
//	format = "json"
//
//	[scripts]
//	dir = "handlers"
//
//	[watch]
//	enabled = true
//	debounce = "250ms"
//
// # Sub-packages
//
//   - watcher: fsnotify-based live reload of the config file
package config
