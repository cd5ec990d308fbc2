package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pdfchat/internal/bootstrap"
	"pdfchat/internal/cli"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("close resources failed: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		// Stdin reads cannot be interrupted by context, so shut down
		// directly on signal.
		<-quit
		cancel()
		_ = app.Close()
		os.Exit(0)
	}()

	terminal := cli.New(app.Auth, app.Tokens, app.Documents, os.Stdin, os.Stdout, app.Logger)
	if err := terminal.Run(ctx); err != nil {
		log.Fatalf("terminal session failed: %v", err)
	}
}
