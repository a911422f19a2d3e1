// Package config loads, normalizes, and validates wavecatch configuration.
//
// Configuration lives in TOML (~/.config/wavecatch/config.toml or
// ./wavecatch.toml). Load decodes the file over Default(), expands paths,
// applies environment overrides (WAVECATCH_NTFY_TOPIC, WAVECATCH_OUTPUT_DIR),
// and validates the result. CreateSample writes the annotated sample used by
// `wavecatch config init`.
package config
