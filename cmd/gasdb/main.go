package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/driver/localblob"
	"github.com/adfharrison1/gasdb-go/pkg/driver/localkv"
	"github.com/adfharrison1/gasdb-go/pkg/gasdb"
	"github.com/adfharrison1/gasdb-go/pkg/server"
)

func main() {
	// Command line flags
	var (
		port           = flag.String("port", "8080", "Server port")
		dataDir        = flag.String("data-dir", ".", "Data directory for collection blobs and the master index")
		masterIndexKey = flag.String("master-index-key", "", "Property-store key for the master index (default GASDB_MASTER_INDEX)")
		lockTimeout    = flag.Duration("lock-timeout", 30*time.Second, "Process-wide lock acquisition timeout")
		showHelp       = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ngasdb is a document database over a pluggable blob-store backend.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                    # Start with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -data-dir /tmp/gasdb   # Custom port and data directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -lock-timeout 5s                  # Fail mutations faster under contention\n", os.Args[0])
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Wire up the filesystem-backed reference drivers
	blobs, err := localblob.New(filepath.Join(*dataDir, "collections"))
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}
	props := localkv.New(filepath.Join(*dataDir, "gasdb_properties.json"))
	log.Printf("INFO: Using data directory: %s", *dataDir)

	var dbOptions []gasdb.Option
	if *masterIndexKey != "" {
		dbOptions = append(dbOptions, gasdb.WithMasterIndexKey(*masterIndexKey))
		log.Printf("INFO: Master index key set to: %s", *masterIndexKey)
	}
	if *lockTimeout > 0 {
		dbOptions = append(dbOptions, gasdb.WithProcessLockTimeout(*lockTimeout))
	}

	db := gasdb.Open(blobs, props, dbOptions...)
	srv := server.NewServer(db)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: srv.Router(),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting gasdb server on :%s", *port)
		log.Printf("API endpoints available at http://localhost:%s", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
