// Package config provides configuration management for the calculator worker.
//
// Configuration is loaded from environment variables and validated on startup.
// All configuration options have sensible defaults for development. The
// page presets (selector entries and slider bounds) can be overridden with a
// YAML file named by PRESETS_FILE:
//
//	default_expression: sin(x)
//	expressions: [sin(x), cos(x), tan(x), log(x), exp(x)]
//	x_min: {min: -20, max: 0, default: -10}
//	x_max: {min: 0, max: 20, default: 10}
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	presets, err := config.LoadPresets(cfg.PresetsFile)
//	fmt.Println(cfg)
package config
