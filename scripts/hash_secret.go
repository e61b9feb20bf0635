package main

import (
	"fmt"
	"log"
	"os"

	"userinfo-service/pkg/secret"

	"github.com/joho/godotenv"
)

// Prints the bcrypt hash of the secret given as argument, or of
// AUTH_SHARED_SECRET, for use as the configured shared secret.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	value := os.Getenv("AUTH_SHARED_SECRET")
	if len(os.Args) > 1 {
		value = os.Args[1]
	}

	if secret.IsHash(value) {
		log.Fatalf("❌ secret is already a bcrypt hash")
	}

	hash, err := secret.Hash(value, secret.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash secret: %v", err)
	}

	fmt.Println(hash)
}
