package main

import (
	"log"

	"github.com/strandhttp/strand/internal/api"
	"github.com/strandhttp/strand/internal/config"
	"github.com/strandhttp/strand/pkg/strand"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	// Load configuration from YAML
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	srv := strand.NewServer(cfg)
	srv.Handle("/echo", api.Echo{})
	srv.Handle("/discard", api.Discard{})
	srv.Handle("/", api.Status{Code: 200, Body: "strand"})

	log.Println("Starting strand server...")
	if err := srv.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
