package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// VAPIDKeys is the signing key pair produced by the provisioning step.
type VAPIDKeys struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// Validate checks both halves are present.
func (k VAPIDKeys) Validate() error {
	if k.PublicKey == "" || k.PrivateKey == "" {
		return errors.New("vapid public and private keys are required")
	}
	return nil
}

// LoadVAPIDKeys prefers explicitly configured keys and otherwise reads the
// JSON key file. It never generates keys.
func LoadVAPIDKeys(path, publicKey, privateKey string) (VAPIDKeys, error) {
	keys := VAPIDKeys{
		PublicKey:  strings.TrimSpace(publicKey),
		PrivateKey: strings.TrimSpace(privateKey),
	}
	if keys.Validate() == nil {
		return keys, nil
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return VAPIDKeys{}, errors.New("vapid keys not configured and no key file set")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return VAPIDKeys{}, fmt.Errorf("read vapid keys file: %w", err)
	}
	if err := json.Unmarshal(raw, &keys); err != nil {
		return VAPIDKeys{}, fmt.Errorf("decode vapid keys file: %w", err)
	}
	keys.PublicKey = strings.TrimSpace(keys.PublicKey)
	keys.PrivateKey = strings.TrimSpace(keys.PrivateKey)
	if err := keys.Validate(); err != nil {
		return VAPIDKeys{}, fmt.Errorf("vapid keys file %s: %w", path, err)
	}
	return keys, nil
}
