package provision

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Keypair files hold a JSON array of the 64 raw ed25519 private-key bytes,
// the format the node, drone and bench binaries read. Identities are
// written once and never mutated; regeneration would invalidate addresses
// already known to a live network.

// GenKeypairFile generates a fresh ed25519 keypair and writes it to path.
// It refuses to overwrite an existing file: provisioning is one-shot and
// must not silently run twice and produce two divergent identities.
func GenKeypairFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("identity already exists: %s", path)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating keypair: %w", err)
	}

	// encoding/json turns []byte into base64; the node binaries expect a
	// plain array of numbers.
	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}

	buf, err := json.Marshal(ints)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("writing keypair: %w", err)
	}

	return os.WriteFile(path, buf, 0600)
}

// ReadKeypairFile loads and validates a keypair file written by
// GenKeypairFile.
func ReadKeypairFile(path string) (ed25519.PrivateKey, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ints []int
	if err := json.Unmarshal(buf, &ints); err != nil {
		return nil, fmt.Errorf("parsing keypair %s: %w", path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair %s: expected %d bytes, got %d", path, ed25519.PrivateKeySize, len(ints))
	}

	raw := make([]byte, len(ints))
	for i, n := range ints {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("keypair %s: byte out of range: %d", path, n)
		}
		raw[i] = byte(n)
	}

	return ed25519.PrivateKey(raw), nil
}
