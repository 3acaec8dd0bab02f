package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/tracklistdna"
)

var (
	port           int
	envFile        string
	dbPath         string
	tempDir        string
	workers        int
	windowSec      int
	overlapSec     int
	timeout        time.Duration
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&envFile, "env", ".env", "Path to a .env file with ACRCloud credentials")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (overrides TRACKLIST_DB_PATH)")
	flag.StringVar(&tempDir, "temp", "", "Temporary directory (overrides TRACKLIST_TEMP_DIR)")
	flag.IntVar(&workers, "workers", 0, "Concurrent recognition requests (0 = default)")
	flag.IntVar(&windowSec, "window", 20, "Segment length in seconds")
	flag.IntVar(&overlapSec, "overlap", 5, "Overlap between segments in seconds")
	flag.DurationVar(&timeout, "timeout", time.Hour, "Maximum duration of one identify request")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	opts, err := tracklistdna.ConfigFromEnv(envFile)
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	opts = append(opts,
		tracklistdna.WithWindow(windowSec*1000, overlapSec*1000),
		tracklistdna.WithLogger(log),
	)
	if dbPath != "" {
		opts = append(opts, tracklistdna.WithDBPath(dbPath))
	}
	if tempDir != "" {
		opts = append(opts, tracklistdna.WithTempDir(tempDir))
	}
	if workers > 0 {
		opts = append(opts, tracklistdna.WithWorkers(workers))
	}
	cfg := tracklistdna.NewConfig(opts...)

	service, err := tracklistdna.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(service, &ServerConfig{
		Port:            port,
		DBPath:          cfg.DBPath,
		AllowedOrigins:  origins,
		IdentifyTimeout: timeout,
	})
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
