// Package config handles configuration loading for fieldtask-mcp.
//
// # Overview
//
// Two kinds of configuration exist. Credentials (the durable identity token, the
// organization id and the user id) always come from the process environment and
// are required. Everything else has a built-in default and may be overridden by
// an optional YAML or TOML file.
//
// # Credentials
//
// Required environment variables:
//
//	FIELDTASK_TOKEN    durable identity token
//	FIELDTASK_ORG_ID   organization identifier
//	FIELDTASK_USER_ID  user identifier
//
// LoadCredentials returns a *ConfigurationError naming the first variable that is
// missing or blank. No defaults are ever substituted.
//
// # Configuration File
//
// The file path comes from the --config flag or FIELDTASK_CONFIG. Values can
// reference environment variables with ${VAR_NAME}:
//
//	server:
//	  name: "fieldtask-mcp"
//	backend:
//	  base_url: "${FIELDTASK_STAGING_URL}"
//	  procedures:
//	    authenticate: "authenticateUser"
//	    tasks: "getTasks"
//	    locations: "getLocations"
//	    complete_task: "completeTask"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// The same keys work in a .toml file. FIELDTASK_BASE_URL, when set, replaces
// backend.base_url after the file is read.
package config
