// Package config provides configuration management for the challenge service.
//
// Configuration is loaded from environment variables using the env package.
// All configuration values have defaults matching the reference deployment:
// a pool of 4 core and 40 maximum workers in front of a queue of 2, and a
// 5 minute simulated hang for ids above 20.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
