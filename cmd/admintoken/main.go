// admintoken mints an admin access token for the /v1/admin surface.
//
//	JWT_SECRET=... go run ./cmd/admintoken -sub office -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/unionhall/pit-reservations/pkg/auth"
)

func main() {
	sub := flag.String("sub", "office", "token subject")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := auth.NewAccessToken(*sub, "admin", secret, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mint token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
