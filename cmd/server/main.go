package main

import (
	"flag"
	"log"
	"os"

	"github.com/ammarkhassawneh/mlops-accidents/internal/config"
	"github.com/ammarkhassawneh/mlops-accidents/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Printf("Server setup failed: %v", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Printf("Server failed: %v", err)
		os.Exit(1)
	}
}
