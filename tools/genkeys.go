package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"matrixci/internal/security"
)

// Generates a ledger signing keypair in the hex format the server loads.
func main() {
	pub, priv, err := security.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen error: %v\n", err)
		os.Exit(2)
	}

	fmt.Println("# ======= Ed25519 Keypair (hex) =======")
	fmt.Println()
	fmt.Println("PRIVATE_KEY:")
	fmt.Println(hex.EncodeToString(priv))
	fmt.Println()
	fmt.Println("PUBLIC_KEY:")
	fmt.Println(hex.EncodeToString(pub))
	fmt.Println()
	fmt.Println("# =====================================")
}
