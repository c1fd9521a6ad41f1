package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/config"
)

// ErrSigningUnavailable indicates the private signing key could not be
// loaded. This is fatal at startup: the service must not serve login
// endpoints without signing capability.
var ErrSigningUnavailable = errors.New("signing key unavailable")

// KeyMaterial holds the RSA key pair used for token signing and
// verification. Loaded once at startup and immutable afterwards.
type KeyMaterial struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadKeyMaterial reads the RSA key pair from inline PEM or file paths.
// When no key is configured and the environment is not production, an
// ephemeral pair is generated so local development works out of the box;
// tokens then survive only for the process lifetime.
func LoadKeyMaterial(cfg config.AuthConfig, production bool) (*KeyMaterial, error) {
	privPEM, err := readKeySource(cfg.PrivateKeyPEM, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}

	if privPEM == nil {
		if production {
			return nil, fmt.Errorf("%w: no RSA private key configured", ErrSigningUnavailable)
		}
		return generateEphemeral()
	}

	private, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrSigningUnavailable, err)
	}

	public := &private.PublicKey
	pubPEM, err := readKeySource(cfg.PublicKeyPEM, cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}
	if pubPEM != nil {
		public, err = jwt.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: parse public key: %v", ErrSigningUnavailable, err)
		}
	}

	return &KeyMaterial{Private: private, Public: public}, nil
}

func generateEphemeral() (*KeyMaterial, error) {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("%w: generate ephemeral key: %v", ErrSigningUnavailable, err)
	}
	return &KeyMaterial{Private: private, Public: &private.PublicKey}, nil
}

func readKeySource(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
	return data, nil
}
