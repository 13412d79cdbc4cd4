// Command keygen generates a signing key for either the ETH or TON scheme
// (or, for ETH only, imports one from hex) and, for ETH, writes it to a
// scrypt-encrypted keystore file.
// Adapted from the teacher's cmd/keygen, generalized from a single ETH
// path to both schemes this module authenticates.
package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/stackdump/ledgersig/internal/cryptosig"
	"github.com/stackdump/ledgersig/internal/tonsig"
)

func main() {
	scheme := flag.String("scheme", "eth", "signing scheme: eth or ton")
	keystorePath := flag.String("out", "", "output path for keystore file (eth only)")
	passphrase := flag.String("pass", "", "passphrase for encrypting the keystore (eth only); prompted if omitted")
	privkeyHex := flag.String("privkey", "", "optional: hex-encoded private key to import (eth only; generates new if not provided)")
	flag.Parse()

	switch *scheme {
	case "eth":
		runEth(*keystorePath, *passphrase, *privkeyHex)
	case "ton":
		runTon()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown -scheme %q (expected eth or ton)\n", *scheme)
		os.Exit(1)
	}
}

func runEth(keystorePath, passphrase, privkeyHex string) {
	if keystorePath == "" {
		fmt.Fprintln(os.Stderr, "Error: -out is required")
		flag.Usage()
		os.Exit(1)
	}
	if passphrase == "" {
		prompted, err := promptPassphrase()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read passphrase: %v\n", err)
			os.Exit(1)
		}
		passphrase = prompted
	}

	privKey := mustEthKey(privkeyHex)
	addr := cryptosig.AddressFromPrivateKey(privKey)
	fmt.Printf("Address: %s\n", addr)

	if err := cryptosig.CreateKeystore(privKey, passphrase, keystorePath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create keystore: %v\n", err)
		os.Exit(1)
	}
	if privkeyHex == "" {
		fmt.Printf("Private key (backup): 0x%s\n", cryptosig.PrivateKeyToHex(privKey))
	}
	fmt.Printf("Keystore created: %s\n", keystorePath)
}

func mustEthKey(privkeyHex string) *ecdsa.PrivateKey {
	if privkeyHex != "" {
		priv, err := cryptosig.LoadPrivateKeyFromHex(privkeyHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load private key: %v\n", err)
			os.Exit(1)
		}
		return priv
	}
	priv, err := cryptosig.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}
	return priv
}

func runTon() {
	pub, priv, err := tonsig.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}
	addr, err := tonsig.Address(pub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to derive address: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Address: %s\n", addr)
	fmt.Printf("Public key: %s\n", tonsig.PublicKeyBase64(pub))
	fmt.Printf("Private key (backup): %s\n", hex.EncodeToString(priv))
}

func promptPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
