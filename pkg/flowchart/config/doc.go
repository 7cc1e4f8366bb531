/*
Package config loads flowchart engine settings.

# Overview

Config wraps a decoded YAML or JSON document and extracts typed values with
defaults, so missing keys and type mismatches never need explicit checks.
Keys may be dotted paths into nested sections:

	cfg, err := config.FromFile("flowchart.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	steps := cfg.Int("max_steps", 10000)
	codec := cfg.String("checkpoint.codec", "msgpack")

# Settings

Settings is the typed engine configuration. LoadSettings layers, in order:
built-in defaults, the settings file, and FLOWCHART_* environment variables
(FLOWCHART_MAX_STEPS, FLOWCHART_LOG_LEVEL, FLOWCHART_CHECKPOINT_STORE,
FLOWCHART_REPOSITORY_DSN, ...). A .env file in the working directory is read
into the environment first without overriding variables already set.

	s, err := config.LoadSettings("flowchart.yaml")
	if err != nil {
	    log.Fatal(err)
	}

The result is validated; every invalid field is reported.
*/
package config
