package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/streamtube/backend/internal/app"
)

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	ctx := context.Background()
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
