package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeSecretClient is a mock implementation of the azsecrets client subset
// used to check secret existence.
type FakeSecretClient struct {
	mu sync.Mutex

	// Secrets maps secret names to values
	Secrets map[string]string
	// Errors maps secret names to errors to return
	Errors map[string]error
	// Requests records the names requested, in order
	Requests []string
	// Delay is slept before answering, honoring context cancellation
	Delay time.Duration
}

// NewFakeSecretClient creates a mock Key Vault client
func NewFakeSecretClient() *FakeSecretClient {
	return &FakeSecretClient{
		Secrets: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

// AddSecret adds a secret to the mock client
func (f *FakeSecretClient) AddSecret(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = value
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeSecretClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetSecret mocks the GetSecret operation
func (f *FakeSecretClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return azsecrets.GetSecretResponse{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, name)

	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}

	value, exists := f.Secrets[name]
	if !exists {
		return azsecrets.GetSecretResponse{}, ResponseError(404, "SecretNotFound")
	}

	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s", name))
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    &id,
			Value: to.Ptr(value),
			Attributes: &azsecrets.SecretAttributes{
				Enabled: to.Ptr(true),
			},
		},
	}, nil
}
