// Command session-token mints a signed session token for local
// development, so the API can be called without an identity provider:
//
//	curl -H "Authorization: Bearer $(session-token -sub dev-user)" localhost:8081/api/accounts
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"spendwise/internal/cli"
	"spendwise/internal/identity"
)

func main() {
	var (
		sub   = flag.String("sub", "", "session subject (required)")
		email = flag.String("email", "", "email claim")
		name  = flag.String("name", "", "display name claim")
		ttl   = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	cli.LoadEnvFile()
	if *sub == "" {
		fmt.Fprintln(os.Stderr, "session-token: -sub is required")
		flag.Usage()
		os.Exit(2)
	}

	issuer := os.Getenv("SESSION_ISSUER")
	if issuer == "" {
		issuer = "spendwise"
	}
	tokens, err := identity.NewTokens(os.Getenv("SESSION_SECRET"), issuer)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session-token:", err)
		os.Exit(1)
	}

	raw, err := tokens.Issue(identity.Identity{Subject: *sub, Email: *email, Name: *name}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session-token:", err)
		os.Exit(1)
	}
	fmt.Println(raw)
}
