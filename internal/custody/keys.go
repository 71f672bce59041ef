package custody

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mvalverde/go-custody/internal/domain"
)

// Address prefixes per chain. Addresses are derived from the public key
// hash; the prefix makes them recognizable per network.
var addressPrefix = map[domain.Chain]string{
	domain.ChainBTC: "bc1q",
	domain.ChainETH: "0x",
	domain.ChainSOL: "so1",
	domain.ChainTRX: "T",
}

func generateKeypair(chain domain.Chain) (address string, priv ed25519.PrivateKey, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}
	return deriveAddress(chain, pub), priv, nil
}

func deriveAddress(chain domain.Chain, pub ed25519.PublicKey) string {
	digest := sha256.Sum256(pub)
	return addressPrefix[chain] + hex.EncodeToString(digest[:20])
}

// seal encrypts private key material with AES-256-GCM under the custody
// key. The nonce is prepended to the ciphertext.
func seal(custodyKey, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(custodyKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(custodyKey, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(custodyKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("sealed key too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
