package cli

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/unixpickle/dnc/internal/server"
)

var serveCheckpoint string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP inference server",
	RunE:  runServe,
}

func init() {
	addMachineFlags(serveCmd)
	f := serveCmd.Flags()
	f.StringVar(&cfg.Server.Bind, "bind", cfg.Server.Bind, "Address to listen on")
	f.IntVarP(&cfg.Server.Port, "port", "p", cfg.Server.Port, "Port to listen on")
	f.Int64Var(&cfg.Run.Seed, "seed", cfg.Run.Seed, "Seed for fresh parameters")
	f.StringVar(&serveCheckpoint, "checkpoint", "", "Serve the machine stored under this checkpoint id")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := loadMachine(db, serveCheckpoint)
	if err != nil {
		return fmt.Errorf("load machine: %w", err)
	}
	if serveCheckpoint == "" {
		m.Controller.ResetParameters(rand.New(rand.NewSource(cfg.Run.Seed)))
	}

	srv := server.New(m, db, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "dnc serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		fmt.Fprintf(os.Stderr, "  memory: N=%d W=%d R=%d\n",
			m.Config.MemorySize, m.Config.WordSize, m.Config.ReadHeads)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
