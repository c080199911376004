package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned by Reveal after Destroy.
var ErrDestroyed = errors.New("credential has been destroyed")

// Credential is an encrypted, in-memory secret string.
type Credential struct {
	mu      sync.RWMutex
	enclave *memguard.Enclave
	empty   bool
}

// NewCredential seals s. An empty string yields an empty credential that
// reveals "".
func NewCredential(s string) *Credential {
	if s == "" {
		return &Credential{empty: true}
	}
	// NewEnclave wipes its argument, so hand it a copy.
	return &Credential{enclave: memguard.NewEnclave([]byte(s))}
}

// Empty reports whether the credential holds no secret.
func (c *Credential) Empty() bool {
	if c == nil {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.empty
}

// Reveal decrypts the secret and passes it to fn. The locked buffer is
// wiped when fn returns.
func (c *Credential) Reveal(fn func(plain string) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.empty {
		return fn("")
	}
	if c.enclave == nil {
		return ErrDestroyed
	}

	locked, err := c.enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(string(locked.Bytes()))
}

// Destroy drops the enclave. It is safe to call more than once.
func (c *Credential) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enclave = nil
	c.empty = false
}
