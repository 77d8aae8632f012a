package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// signingKeyEnv holds the hex-encoded HMAC key in deployed
// environments. Key material never goes in the config file.
const signingKeyEnv = "AGENTGATE_SIGNING_KEY"

// LoadSigningKey resolves the HMAC signing key. In a production
// posture the key must be present in the environment or at keyPath;
// a missing key is a startup error, never a silent fallback. Outside
// production a random ephemeral key is generated, which means issued
// tokens do not survive a restart.
func LoadSigningKey(keyPath string, production bool) ([]byte, error) {
	if env := os.Getenv(signingKeyEnv); env != "" {
		key, err := hex.DecodeString(env)
		if err != nil {
			return nil, fmt.Errorf("token: %s is not valid hex: %w", signingKeyEnv, err)
		}
		if len(key) < 32 {
			return nil, fmt.Errorf("token: signing key too short: %d bytes, need 32", len(key))
		}
		return key, nil
	}

	if keyPath != "" {
		key, err := os.ReadFile(keyPath)
		if err == nil {
			if len(key) < 32 {
				return nil, fmt.Errorf("token: signing key file %s too short", keyPath)
			}
			return key, nil
		}
		if production {
			return nil, fmt.Errorf("token: read signing key %s: %w", keyPath, err)
		}
	}

	if production {
		return nil, errors.New("token: no signing key configured; set " + signingKeyEnv + " or auth.signing_key_path")
	}

	// Development only: ephemeral key, tokens die with the process.
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("token: generate ephemeral key: %w", err)
	}
	return key, nil
}
