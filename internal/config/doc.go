// Package config provides centralized configuration management for the
// income statement service and CLI.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), including a local .env file
//	2. A YAML configuration file
//	3. Default values from struct tags (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern INCSTMT_<SECTION>_<FIELD>:
//
//	INCSTMT_SERVER_PORT=8080
//	INCSTMT_UPLOAD_MAX_BYTES=10485760
//	INCSTMT_DATASETS_TTL=2h
//	INCSTMT_SHEETS_ENABLED=true
//	INCSTMT_TELEMETRY_TRACE_EXPORTER=stdout
//
// INCSTMT_CONFIG_FILE points at an explicit YAML file; otherwise config.yaml
// and configs/config.yaml are tried in that order.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
