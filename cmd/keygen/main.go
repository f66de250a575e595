package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/compliance-api-go/pkg/auth"
	"github.com/arnavshah/compliance-api-go/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in environment or .env")
		os.Exit(1)
	}
	auth.Configure(cfg.JWTSecret, cfg.APIMasterSecret)

	userID := os.Args[1]
	fmt.Printf("Generated Key for %s:\n%s\n", userID, auth.GenerateHMACKey(userID))
}
