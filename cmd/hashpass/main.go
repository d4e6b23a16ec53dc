// hashpass prints a bcrypt hash for DEV_PASSWORD_HASH; use with go run ./cmd/hashpass <password>.
package main

import (
	"fmt"
	"os"

	"estimate-api/backend/internal/security"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password>")
		os.Exit(1)
	}

	hash, err := security.NewHasher(0).Hash([]byte(os.Args[1]))
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
