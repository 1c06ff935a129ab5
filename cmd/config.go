package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cacherouter/router"
)

// FileConfig is the shape of a --config YAML file. All fields are
// optional; flags override whatever this file sets. Every top-level
// section must be listed here to satisfy KnownFields(true) strict
// parsing below.
type FileConfig struct {
	Workers   []string `yaml:"workers"`
	Policy    string   `yaml:"policy"`
	Addr      string   `yaml:"addr"`
	LogLevel  string   `yaml:"log"`
	Seed      int64    `yaml:"seed"`
	CacheAware struct {
		CacheThreshold       float64 `yaml:"cache_threshold"`
		CacheRoutingProb     float64 `yaml:"cache_routing_prob"`
		EvictionIntervalSecs uint    `yaml:"eviction_interval_secs"`
		MaxTreeSize          uint    `yaml:"max_tree_size"`
		EnableFairness       bool    `yaml:"enable_fairness"`
		FairnessFillSize     uint    `yaml:"fairness_fill_size"`
	} `yaml:"cache_aware"`
}

// loadFileConfig parses path into a FileConfig. Unknown keys are a load
// error, not a silently-ignored field.
func loadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	var cfg FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// applyFileConfig merges cfg into the flag-bound package vars, for every
// field the CLI invocation left at its flag default. changed reports
// which flags the user actually passed on the command line, so a file
// value never clobbers an explicit flag.
func applyFileConfig(cfg FileConfig, changed map[string]bool) {
	if len(cfg.Workers) > 0 && !changed["worker"] {
		workerURLs = cfg.Workers
	}
	if cfg.Policy != "" && !changed["policy"] {
		policyName = cfg.Policy
	}
	if cfg.Addr != "" && !changed["addr"] {
		listenAddr = cfg.Addr
	}
	if cfg.LogLevel != "" && !changed["log"] {
		logLevel = cfg.LogLevel
	}
	if cfg.Seed != 0 && !changed["seed"] {
		seed = cfg.Seed
	}

	ca := cfg.CacheAware
	if ca.CacheThreshold != 0 && !changed["cache-threshold"] {
		cacheThreshold = ca.CacheThreshold
	}
	if ca.CacheRoutingProb != 0 && !changed["cache-routing-prob"] {
		cacheRoutingProb = ca.CacheRoutingProb
	}
	if ca.EvictionIntervalSecs != 0 && !changed["eviction-interval"] {
		evictionIntervalSecs = ca.EvictionIntervalSecs
	}
	if ca.MaxTreeSize != 0 && !changed["max-tree-size"] {
		maxTreeSize = ca.MaxTreeSize
	}
	if ca.EnableFairness && !changed["enable-fairness"] {
		enableFairness = ca.EnableFairness
	}
	if ca.FairnessFillSize != 0 && !changed["fairness-fill-size"] {
		fairnessFillSize = ca.FairnessFillSize
	}
}

func parsePolicyKind(name string) (router.PolicyKind, error) {
	switch name {
	case "round-robin":
		return router.RoundRobin, nil
	case "random":
		return router.Random, nil
	case "cache-aware":
		return router.CacheAware, nil
	default:
		return 0, fmt.Errorf("unrecognized policy %q (want round-robin, random, or cache-aware)", name)
	}
}
