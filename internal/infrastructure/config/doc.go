// Package config handles loading and validating MOSTwo Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading secrets from an optional .env file beside the YAML file
//   - Overriding with MOSTWO_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Sensitive values (JWT secret, broker and InfluxDB credentials) belong in
//     the environment or the .env file, not in config.yaml
//   - The JWT secret has no default and must be at least 32 characters
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
