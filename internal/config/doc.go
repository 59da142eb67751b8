// Package config loads the reconciler CLI configuration.
//
// The configuration is stored in reconciler.json at the project root, or
// in reconciler.yaml / reconciler.yml. Missing fields take their defaults.
//
// # Configuration File Structure
//
//	{
//	  "renderer": {
//	    "maxFlushIterations": 50,
//	    "debug": true
//	  },
//	  "server": {
//	    "address": ":8080",
//	    "maxClients": 16,
//	    "clientBuffer": 64,
//	    "history": 256,
//	    "heartbeat": "30s"
//	  },
//	  "log": {"level": "debug", "format": "json"},
//	  "metrics": {"enabled": true, "namespace": "reconciler"},
//	  "tracing": {"enabled": false}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
