package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/runningman84/zfs-exporter/pkg/collector"
	"github.com/runningman84/zfs-exporter/pkg/config"
	"github.com/runningman84/zfs-exporter/pkg/zfs"
	"go.uber.org/zap"
	"k8s.io/klog/v2"
)

// Version can be set at build time using -ldflags
// Example: go build -ldflags="-X main.Version=1.0.0"
var Version = "dev"

// stringSliceFlag collects repeated flag values
type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	// Initialize klog first
	klog.InitFlags(nil)

	// Parse command line flags
	bind := flag.String("bind", "127.0.0.1", "Address to bind the metrics endpoint to")
	port := flag.Int("port", 8000, "Port to serve the metrics endpoint on")
	limit := flag.Int("limit", 2, "Maximum dataset depth reported in full detail")
	var exclude stringSliceFlag
	flag.Var(&exclude, "exclude", "Dataset name to exclude from collection (repeatable)")
	mode := flag.String("mode", "direct", "Operation mode: direct or test")
	logLevel := flag.String("log-level", "info", "Log level: info or debug")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Printf("zfs-exporter version %s\n", Version)
		return
	}

	// Validate mode
	if *mode != "direct" && *mode != "test" {
		klog.Fatalf("Invalid mode: %s. Must be one of: direct, test", *mode)
	}

	// Validate log level
	if *logLevel != "info" && *logLevel != "debug" {
		klog.Fatalf("Invalid log level: %s. Must be one of: info, debug", *logLevel)
	}

	// Validate and set log format
	if *logFormat != "text" && *logFormat != "json" {
		klog.Fatalf("Invalid log format: %s. Must be one of: text, json", *logFormat)
	}
	if *logFormat == "json" {
		// Configure zap for JSON logging
		var zapLog *zap.Logger
		var err error
		if *logLevel == "debug" {
			zapLog, err = zap.NewDevelopment()
		} else {
			zapLog, err = zap.NewProduction()
		}
		if err != nil {
			klog.Fatalf("Failed to initialize JSON logger: %v", err)
		}
		defer zapLog.Sync()

		// Set klog to use zap backend for JSON output
		klog.SetLogger(zapr.NewLogger(zapLog))
	}

	klog.Infof("Starting zfs-exporter version %s in %s mode with %s log level", Version, *mode, *logLevel)

	// Create configuration with specified mode; flags given on the command
	// line take precedence over environment fallbacks
	cfg := config.NewConfig(*mode)
	cfg.LogLevel = *logLevel
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bind":
			cfg.BindAddress = *bind
		case "port":
			cfg.Port = *port
		case "limit":
			cfg.DepthLimit = *limit
		case "exclude":
			cfg.ExcludeDatasets = exclude
		}
	})

	if cfg.DepthLimit < 0 {
		klog.Fatalf("Invalid depth limit: %d. Must be non-negative", cfg.DepthLimit)
	}

	// Set klog verbosity based on log level
	if *logLevel == "debug" {
		flag.Set("v", "1")
	}

	klog.Infof("Depth limit: %d", cfg.DepthLimit)
	if len(cfg.ExcludeDatasets) > 0 {
		klog.Infof("Excluded datasets: %v", cfg.ExcludeDatasets)
	} else {
		klog.Infof("Excluded datasets: none")
	}

	manager := zfs.NewManager(cfg)

	// Log ZFS version information; failure here is not fatal, the
	// collection pass reports unavailability on its own
	ctx, cancel := context.WithTimeout(context.Background(), cfg.CommandTimeout)
	userland, kernel, err := manager.GetVersion(ctx)
	cancel()
	if err != nil {
		klog.Warningf(" Failed to get ZFS version: %v", err)
	} else {
		klog.Infof("ZFS Version - Userland: %s, Kernel: %s", userland, kernel)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collector.New(cfg, manager),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	klog.Infof("Serving metrics on http://%s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		klog.Fatalf("HTTP server failed: %v", err)
	}

	klog.Flush()
}
