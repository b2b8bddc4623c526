package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/session"
)

func main() {
	size := 48
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 32 {
			log.Fatal("Usage: go run scripts/generate_secret.go [bytes >= 32]")
		}
		size = n
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("Error generating secret:", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	fmt.Printf("SESSION_SECRET=%s\n", secret)

	manager := session.NewManager(config.SessionConfig{Secret: secret, TokenTTL: time.Minute}, "storefront")
	sessionID, token, err := manager.NewSession()
	if err != nil {
		log.Fatal("Token signing failed:", err)
	}
	if got, err := manager.Validate(token); err != nil || got != sessionID {
		log.Fatal("Token verification failed:", err)
	}

	fmt.Println("✅ Secret verified successfully!")
}
