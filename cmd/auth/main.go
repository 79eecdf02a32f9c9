package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/spyberpolymath/folio-auth/internal/auth/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		runSeed(application, os.Args[2:])
		return
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// runSeed handles `auth seed -email ... -password ... [-name ...] [-role ...]`.
func runSeed(application *app.Application, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	email := fs.String("email", "", "email address of the user to create")
	password := fs.String("password", "", "password for the new user")
	name := fs.String("name", "", "display name for the new user")
	role := fs.String("role", "user", "role for the new user (user or admin)")
	_ = fs.Parse(args)

	if *email == "" || *password == "" {
		log.Fatal("seed: -email and -password are required")
	}

	if err := application.SeedUser(context.Background(), *email, *password, *name, *role); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Printf("user %s created", *email)
}
