// Package configs provides the embedded configuration template.
//
// The template is embedded at build time so `hybridsearch config init` works
// from any distribution. Edit config.example.yaml and rebuild to change it.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/hybridsearch/config.yaml)
//  3. Project config (.hybridsearch.yaml)
//  4. Environment variables (HYBRIDSEARCH_*)
//  5. CLI flags
package configs

import _ "embed"

// ConfigTemplate is the commented example configuration.
//
//go:embed config.example.yaml
var ConfigTemplate string
