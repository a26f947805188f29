package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"alfredoptarigan/resume-registry/internal/config"
	"alfredoptarigan/resume-registry/internal/services"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := config.OpenDocumentStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize document store: %v", err)
	}
	defer closeStore()

	store.Start(ctx)
	defer store.Stop()

	shell := newShell(os.Stdout)
	view := services.NewRegistryView(store, shell.redraw)
	shell.attach(view)

	if err := view.Activate(ctx); err != nil {
		log.Fatalf("❌ Failed to activate registry view: %v", err)
	}
	defer view.Deactivate()

	if err := shell.run(ctx, os.Stdin); err != nil && err != io.EOF {
		log.Printf("❌ %v", err)
	}
}
