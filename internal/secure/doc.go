// Package secure keeps connection strings encrypted in memory between the
// moment they are resolved and the moment an Azure client is built.
//
// The plaintext lives in a memguard enclave (XSalsa20Poly1305, mlocked
// where the platform allows it). Callers only see it inside Reveal, and
// main calls memguard.Purge on exit to wipe every enclave key.
//
//	cred := secure.NewCredential(connectionString)
//	defer cred.Destroy()
//
//	err := cred.Reveal(func(plain string) error {
//	    client, err = azappconfig.NewClientFromConnectionString(plain, nil)
//	    return err
//	})
//
// Memory locking is best effort: without RLIMIT_MEMLOCK on Linux the data
// is still encrypted but may be swapped.
package secure
