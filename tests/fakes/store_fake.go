package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/appcfg/internal/item"
)

// StoreCall records one call made against FakeStore.
type StoreCall struct {
	Op    string
	Entry item.Entry
}

// FakeStore is an in-memory configuration store keyed by (Key, Label).
type FakeStore struct {
	mu sync.Mutex

	// Entries is the current store content, in insertion order.
	Entries []item.Entry
	// Calls records every call, including ListEntries.
	Calls []StoreCall

	// ListErr is returned by ListEntries if set.
	ListErr error
	// Errors maps "op:key" (op is add, set or delete) to an error returned
	// for that call.
	Errors map[string]error

	etagSeq int
}

// NewFakeStore creates a store pre-populated with entries.
func NewFakeStore(entries ...item.Entry) *FakeStore {
	f := &FakeStore{Errors: make(map[string]error)}
	for _, e := range entries {
		f.put(e)
	}
	return f
}

// FailOn makes op ("add", "set" or "delete") fail for key.
func (f *FakeStore) FailOn(op, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Errors == nil {
		f.Errors = make(map[string]error)
	}
	f.Errors[op+":"+key] = err
}

// ListEntries returns a copy of the store content.
func (f *FakeStore) ListEntries(ctx context.Context) ([]item.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, StoreCall{Op: "list"})
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]item.Entry, len(f.Entries))
	copy(out, f.Entries)
	return out, nil
}

// AddEntry adds e, failing if the (Key, Label) already exists.
func (f *FakeStore) AddEntry(ctx context.Context, e item.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, StoreCall{Op: "add", Entry: e})
	if err := f.Errors["add:"+e.Key]; err != nil {
		return err
	}
	if f.index(e.Key, e.Label) >= 0 {
		return fmt.Errorf("entry '%s' with label '%s' already exists", e.Key, e.Label)
	}
	f.put(e)
	return nil
}

// SetEntry creates or replaces e. A non-empty ETag must match the stored one.
func (f *FakeStore) SetEntry(ctx context.Context, e item.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, StoreCall{Op: "set", Entry: e})
	if err := f.Errors["set:"+e.Key]; err != nil {
		return err
	}
	i := f.index(e.Key, e.Label)
	if e.ETag != "" && (i < 0 || f.Entries[i].ETag != e.ETag) {
		return PreconditionFailedError()
	}
	if i >= 0 {
		f.Entries = append(f.Entries[:i], f.Entries[i+1:]...)
	}
	f.put(e)
	return nil
}

// DeleteEntry removes the entry identified by key and label. Deleting a
// missing entry succeeds.
func (f *FakeStore) DeleteEntry(ctx context.Context, key, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, StoreCall{Op: "delete", Entry: item.Entry{Key: key, Label: label}})
	if err := f.Errors["delete:"+key]; err != nil {
		return err
	}
	if i := f.index(key, label); i >= 0 {
		f.Entries = append(f.Entries[:i], f.Entries[i+1:]...)
	}
	return nil
}

// Get returns the stored entry for key and label.
func (f *FakeStore) Get(key, label string) (item.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(key, label); i >= 0 {
		return f.Entries[i], true
	}
	return item.Entry{}, false
}

// MutatingCalls returns the calls other than ListEntries.
func (f *FakeStore) MutatingCalls() []StoreCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []StoreCall
	for _, c := range f.Calls {
		if c.Op != "list" {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeStore) put(e item.Entry) {
	f.etagSeq++
	e.ETag = fmt.Sprintf("etag-%d", f.etagSeq)
	f.Entries = append(f.Entries, e)
}

func (f *FakeStore) index(key, label string) int {
	for i, e := range f.Entries {
		if e.Key == key && e.Label == label {
			return i
		}
	}
	return -1
}

// FakeVault reports which secrets exist in a Key Vault.
type FakeVault struct {
	mu sync.Mutex

	Secrets map[string]bool
	// Errors maps secret names to errors returned by SecretExists.
	Errors map[string]error
	Calls  []string
}

// NewFakeVault creates a vault holding the named secrets.
func NewFakeVault(names ...string) *FakeVault {
	v := &FakeVault{Secrets: make(map[string]bool), Errors: make(map[string]error)}
	for _, n := range names {
		v.Secrets[n] = true
	}
	return v
}

// SecretExists reports whether name is present.
func (v *FakeVault) SecretExists(ctx context.Context, name string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, name)
	if err := v.Errors[name]; err != nil {
		return false, err
	}
	return v.Secrets[name], nil
}
