// Package fakes provides test doubles for the Azure App Configuration and
// Key Vault clients.
//
// FakeStore and FakeVault implement the reconciliation engine's store and
// vault interfaces in memory. FakeSettingsClient and FakeSecretClient stand
// in for the Azure SDK clients underneath the real adapters. Fakes are
// manually implemented (not generated) to provide precise control over test
// behavior.
//
// Usage:
//
//	store := fakes.NewFakeStore(item.Entry{Key: "Api:Url", Value: "https://old"})
//	store.FailOn("set", "Api:Url", fakes.PreconditionFailedError())
//	engine := reconcile.New(store, fakes.NewFakeVault("db-password"))
//	// Run engine operations...
package fakes
