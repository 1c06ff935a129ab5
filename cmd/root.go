// cmd/root.go
package cmd

import (
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inference-sim/cacherouter/router"
)

var (
	workerURLs           []string
	policyName           string
	listenAddr           string
	logLevel             string
	seed                 int64
	configPath           string
	cacheThreshold       float64
	cacheRoutingProb     float64
	evictionIntervalSecs uint
	maxTreeSize          uint
	enableFairness       bool
	fairnessFillSize     uint
)

var rootCmd = &cobra.Command{
	Use:   "cacherouter",
	Short: "Cache-aware load-balancing router for inference workers",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the router HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			fileCfg, err := loadFileConfig(configPath)
			if err != nil {
				logrus.Fatalf("Failed to load config %s: %v", configPath, err)
			}
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			applyFileConfig(fileCfg, changed)
		}

		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if len(workerURLs) == 0 {
			logrus.Fatal("at least one --worker is required")
		}

		kind, err := parsePolicyKind(policyName)
		if err != nil {
			logrus.Fatalf("Invalid policy: %v", err)
		}

		var r *router.Router
		switch kind {
		case router.RoundRobin:
			r, err = router.NewRoundRobinRouter(workerURLs)
		case router.Random:
			r, err = router.NewRandomRouter(workerURLs, seed)
		case router.CacheAware:
			opts := router.CacheAwareOptions{
				CacheThreshold:       cacheThreshold,
				CacheRoutingProb:     cacheRoutingProb,
				EvictionIntervalSecs: evictionIntervalSecs,
				MaxTreeSize:          maxTreeSize,
				EnableFairness:       enableFairness,
				FairnessFillSize:     fairnessFillSize,
			}
			r, err = router.NewCacheAwareRouter(workerURLs, opts, seed)
		}
		if err != nil {
			logrus.Fatalf("Failed to construct router: %v", err)
		}
		defer r.Close()

		dispatcher := router.NewDispatcher(r, nil)

		mux := http.NewServeMux()
		mux.HandleFunc("/"+router.RouteGenerate, func(w http.ResponseWriter, req *http.Request) {
			dispatcher.Dispatch(w, req, router.RouteGenerate)
		})
		mux.HandleFunc("/"+router.RouteCompletions, func(w http.ResponseWriter, req *http.Request) {
			dispatcher.Dispatch(w, req, router.RouteCompletions)
		})
		mux.HandleFunc("/"+router.RouteChatCompletions, func(w http.ResponseWriter, req *http.Request) {
			dispatcher.Dispatch(w, req, router.RouteChatCompletions)
		})

		logrus.Infof("Starting router: policy=%s workers=%d addr=%s", kind, len(workerURLs), listenAddr)
		if err := http.ListenAndServe(listenAddr, mux); err != nil {
			logrus.Fatalf("Server exited: %v", err)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	serveCmd.Flags().StringSliceVar(&workerURLs, "worker", nil, "Worker base URL (repeatable)")
	serveCmd.Flags().StringVar(&policyName, "policy", "round-robin", "Routing policy: round-robin, random, cache-aware")
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for random/cache-aware policies")
	serveCmd.Flags().StringVar(&configPath, "config", "", "Optional YAML config file")

	defaults := router.DefaultCacheAwareOptions()
	serveCmd.Flags().Float64Var(&cacheThreshold, "cache-threshold", defaults.CacheThreshold, "Prefix-match ratio above which cache-aware routing follows the matched worker")
	serveCmd.Flags().Float64Var(&cacheRoutingProb, "cache-routing-prob", defaults.CacheRoutingProb, "Probability of consulting the prefix tree vs. shortest-queue fallback")
	serveCmd.Flags().UintVar(&evictionIntervalSecs, "eviction-interval", defaults.EvictionIntervalSecs, "Seconds between background prefix-tree eviction passes")
	serveCmd.Flags().UintVar(&maxTreeSize, "max-tree-size", defaults.MaxTreeSize, "Prefix tree node-count bound")
	serveCmd.Flags().BoolVar(&enableFairness, "enable-fairness", defaults.EnableFairness, "Use per-user fairness credits instead of the probabilistic cache mix")
	serveCmd.Flags().UintVar(&fairnessFillSize, "fairness-fill-size", defaults.FairnessFillSize, "Per-(user, worker) credit refill amount, in characters")

	rootCmd.AddCommand(serveCmd)
}
