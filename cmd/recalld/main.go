package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/server"
)

func main() {
	flags := pflag.NewFlagSet("recalld", pflag.ExitOnError)
	addr := flags.String("addr", ":8080", "address to listen on")
	dbPath := flags.String("db", "recalld.db", "path to the SQLite database file")
	token := flags.String("token", "", "bearer token clients must present")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if envToken := os.Getenv("RECALLD_TOKEN"); *token == "" && envToken != "" {
		*token = envToken
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "a bearer token is required: pass --token or set RECALLD_TOKEN")
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	srv, err := server.New(*dbPath, *token, log)
	if err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("recalld listening", "addr", *addr, "db", *dbPath)
	if err := http.ListenAndServe(*addr, srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
