// Package config handles configuration loading for parley-relay.
//
// # Overview
//
// Configuration is loaded from YAML with environment variable expansion
// and validated before use.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	assistant:
//	  api_key: "${OPENAI_API_KEY}"
//
// Syntax: ${VAR_NAME} or $VAR_NAME
//
// # Configuration Sections
//
// Server and database:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	database:
//	  path: "/var/lib/parley/relay.db"
//
// Assistant bridge:
//
//	assistant:
//	  enabled: true
//	  identity: "assistant"
//	  api_key: "${OPENAI_API_KEY}"
//	  model: "gpt-4o-mini"
//	  timeout: "30s"
//
// Limits:
//
//	limits:
//	  events_per_second: 10
//	  burst: 20
//	  dedupe_ttl: "5m"
//
// Logging and metrics:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: false
//
// Duration values use Go's time.ParseDuration syntax.
package config
