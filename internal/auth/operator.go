package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/mvalverde/go-custody/internal/domain"
)

const operatorSessionTTL = 15 * time.Minute

// Operators is the shared-secret operator gate. There is no per-operator
// identity; any holder of the secret gets a session scoped to approvals
// and key retrieval. Consumers depend on small interfaces (Check), so a
// per-operator implementation can replace this one without touching the
// workflow engine.
type Operators struct {
	secret []byte

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewOperators(secret string) *Operators {
	return &Operators{
		secret:   []byte(secret),
		sessions: make(map[string]time.Time),
	}
}

// Login trades the shared secret for an ephemeral session token.
func (o *Operators) Login(secret string) (string, error) {
	if subtle.ConstantTimeCompare(o.secret, []byte(secret)) != 1 {
		return "", fmt.Errorf("%w: operator secret", domain.ErrAuthorization)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions[token] = time.Now().Add(operatorSessionTTL)
	return token, nil
}

// Check validates a session token, pruning it once expired.
func (o *Operators) Check(token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	exp, ok := o.sessions[token]
	if !ok {
		return fmt.Errorf("%w: operator session", domain.ErrAuthorization)
	}
	if time.Now().After(exp) {
		delete(o.sessions, token)
		return fmt.Errorf("%w: operator session expired", domain.ErrAuthorization)
	}
	return nil
}
