package crypto

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

// SaveKeygenFile writes the keypair in the solana-keygen JSON format (an
// array of 64 byte values). If the parent directory does not exist it will be
// created with 0700 permissions.
func SaveKeygenFile(path string, key *Keypair) error {
	if key == nil {
		return errors.New("crypto: nil keypair")
	}
	if path == "" {
		return errors.New("crypto: empty keypair path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	raw := make([]int, len(key.private))
	for i, b := range key.private {
		raw[i] = int(b)
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "keypair-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// LoadKeygenFile reads a solana-keygen JSON keypair file.
func LoadKeygenFile(path string) (*Keypair, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keypair path")
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, err
	}
	return KeypairFromPrivateKey(key)
}
