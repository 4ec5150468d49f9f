// cmd/devtoken prints a signed access token for local testing.
// Usage: go run ./cmd/devtoken -role manager -branch <uuid>
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gamestore/internal/config"
	"gamestore/internal/middleware"

	"github.com/google/uuid"
)

func main() {
	role := flag.String("role", middleware.RoleAdmin, "cashier | manager | admin")
	username := flag.String("user", "dev", "username claim")
	branch := flag.String("branch", "", "home branch id (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var branchID *uuid.UUID
	if *branch != "" {
		id, err := uuid.Parse(*branch)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid -branch:", err)
			os.Exit(1)
		}
		branchID = &id
	}

	ttl := time.Duration(cfg.JWTExpirationHours) * time.Hour
	tok, err := middleware.SignToken(cfg.JWTSecret, uuid.New(), *username, *role, branchID, ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
