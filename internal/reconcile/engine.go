// Package reconcile computes and applies the changes that bring an Azure App
// Configuration store in line with a local settings document.
//
// A run fetches the store once and decides every item against that
// snapshot; entries added during the run are not visible to later items.
// Mutations are issued one at a time in document order. The engine performs
// no output of its own: it emits Decision records to an optional observer
// and returns them in a Report.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/item"
	"github.com/systmms/appcfg/internal/label"
	"github.com/systmms/appcfg/internal/secretref"
	"github.com/systmms/appcfg/internal/validation"
)

const (
	storeService = "App Configuration"
	vaultService = "Key Vault"
)

// Store is the remote configuration store.
type Store interface {
	// ListEntries returns every entry, fully materialized.
	ListEntries(ctx context.Context) ([]item.Entry, error)
	AddEntry(ctx context.Context, e item.Entry) error
	// SetEntry overwrites the entry identified by Key and Label. A non-empty
	// ETag makes the write conditional on the entry being unchanged.
	SetEntry(ctx context.Context, e item.Entry) error
	DeleteEntry(ctx context.Context, key, label string) error
}

// Vault answers whether a secret exists. A missing secret is (false, nil).
type Vault interface {
	SecretExists(ctx context.Context, name string) (bool, error)
}

// Recorder receives run statistics.
type Recorder interface {
	Decision(d Decision)
	StoreError(op string)
	MissingSecret()
	RunFinished(command string, elapsed time.Duration)
}

// Options control a single run.
type Options struct {
	VaultName string
	DryRun    bool
	Strict    bool
	// StopOnError ends the run at the first failed mutation instead of
	// continuing with the remaining items.
	StopOnError bool
	// CallTimeout bounds each remote call; zero disables the deadline.
	CallTimeout time.Duration
}

// Engine reconciles local items with a store.
type Engine struct {
	store    Store
	vault    Vault
	observer func(Decision)
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver streams each decision as it is made.
func WithObserver(fn func(Decision)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New creates an engine. vault may be nil when neither strict imports nor
// cleanup are needed.
func New(store Store, vault Vault, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		vault:    vault,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Import validates items and reconciles them against the store. Validation
// failures return ErrBlocked before any remote call. Authentication failures
// abort the run. Other mutation failures are collected in the report and
// yield ErrItemFailures once every item has been processed.
func (e *Engine) Import(ctx context.Context, items []item.ConfigItem, o Options) (*Report, error) {
	start := time.Now()
	defer func() { e.recorder.RunFinished("import", time.Since(start)) }()

	report := &Report{DryRun: o.DryRun}

	if res := validation.ValidateAll(items); !res.Valid {
		report.Blocked = true
		report.Problems = res.Errors
		return report, ErrBlocked
	}

	if hasSecretRefs(items) {
		if o.VaultName == "" {
			return report, dserrors.ConfigError{
				Field:      "vault",
				Message:    "a vault name is required to import Key Vault references",
				Suggestion: "Pass --vault <name> or set vault.name in appcfg.yaml",
			}
		}
		if o.Strict && e.vault == nil {
			return report, dserrors.ConfigError{
				Field:   "vault",
				Message: "strict mode needs a Key Vault client",
			}
		}
	}

	snap, err := e.snapshot(ctx, o)
	if err != nil {
		return report, err
	}

	purged := make(map[string]bool)
	for _, c := range items {
		if err := e.reconcileItem(ctx, c, snap, purged, o, report); err != nil {
			return report, err
		}
	}

	if len(report.Failures) > 0 {
		return report, ErrItemFailures
	}
	return report, nil
}

// reconcileItem decides and applies one item. purged holds the keys whose
// unlabeled entry an earlier item of this run deleted; the snapshot entry for
// such a key no longer exists, so a later item with the same identity is an
// ADD.
func (e *Engine) reconcileItem(ctx context.Context, c item.ConfigItem, snap snapshot, purged map[string]bool, o Options, report *Report) error {
	if c.Purge {
		d := Decision{Action: ActionDelete, Key: c.Key, DryRun: o.DryRun, Reason: "purge"}
		failures := len(report.Failures)
		err := e.commit(ctx, d, o, report, func(ctx context.Context) error {
			return e.store.DeleteEntry(ctx, c.Key, "")
		})
		if err == nil && len(report.Failures) == failures {
			purged[c.Key] = true
		}
		return err
	}

	wire := toEntry(c, o.VaultName)
	existing, found := snap.find(wire.Key, wire.Label)
	if found && wire.Label == "" && purged[wire.Key] {
		found = false
	}

	if o.Strict && c.IsSecretRef {
		status, reason, err := e.checkSecret(ctx, c.Value, o)
		if err != nil {
			return err
		}
		if status != secretFound {
			e.recorder.MissingSecret()
			e.emit(report, Decision{
				Action:    ActionWarning,
				Key:       c.Key,
				Label:     wire.Label,
				SecretRef: true,
				DryRun:    o.DryRun,
				Reason:    reason,
			})
		}
	}

	d := Decision{Key: c.Key, Label: wire.Label, SecretRef: c.IsSecretRef, DryRun: o.DryRun}
	switch {
	case !found:
		d.Action = ActionAdd
		return e.commit(ctx, d, o, report, func(ctx context.Context) error {
			return e.store.AddEntry(ctx, wire)
		})
	case existing.Value != wire.Value:
		d.Action = ActionUpdate
		wire.ETag = existing.ETag
		return e.commit(ctx, d, o, report, func(ctx context.Context) error {
			return e.store.SetEntry(ctx, wire)
		})
	default:
		d.Action = ActionNoop
		e.emit(report, d)
		return nil
	}
}

// Export reads the store and converts every entry into a local item.
// References that cannot be decoded are exported with an empty Value and
// reported as warnings so a re-import is blocked rather than silently wrong.
func (e *Engine) Export(ctx context.Context, o Options) ([]item.ConfigItem, []Decision, error) {
	start := time.Now()
	defer func() { e.recorder.RunFinished("export", time.Since(start)) }()

	snap, err := e.snapshot(ctx, o)
	if err != nil {
		return nil, nil, err
	}

	items := make([]item.ConfigItem, 0, len(snap))
	var warnings []Decision
	for _, entry := range snap {
		c := label.Apply(item.ConfigItem{Key: entry.Key, Value: entry.Value}, entry.Label)
		if secretref.IsReference(entry.ContentType) {
			c.IsSecretRef = true
			c.Value = secretref.Decode(entry.Value)
			if c.Value == "" {
				w := Decision{
					Action:    ActionWarning,
					Key:       entry.Key,
					Label:     entry.Label,
					SecretRef: true,
					Reason:    "Key Vault reference could not be decoded; exported without a secret name",
				}
				e.recorder.Decision(w)
				if e.observer != nil {
					e.observer(w)
				}
				warnings = append(warnings, w)
			}
		}
		items = append(items, c)
	}
	return items, warnings, nil
}

// Cleanup deletes Key Vault reference entries that point at secrets missing
// from o.VaultName. References to other vaults are left alone, and
// references that cannot be decoded are reported as warnings and kept.
func (e *Engine) Cleanup(ctx context.Context, o Options) (*Report, error) {
	start := time.Now()
	defer func() { e.recorder.RunFinished("cleanup", time.Since(start)) }()

	report := &Report{DryRun: o.DryRun}
	if e.vault == nil || o.VaultName == "" {
		return report, dserrors.ConfigError{
			Field:      "vault",
			Message:    "cleanup needs a vault name",
			Suggestion: "Pass --vault <name> or set vault.name in appcfg.yaml",
		}
	}

	snap, err := e.snapshot(ctx, o)
	if err != nil {
		return report, err
	}

	for _, entry := range snap {
		if !secretref.IsReference(entry.ContentType) {
			continue
		}
		d := Decision{Key: entry.Key, Label: entry.Label, SecretRef: true, DryRun: o.DryRun}

		name := secretref.SecretName(entry.Value)
		if name == "" {
			d.Action = ActionWarning
			d.Reason = "reference could not be decoded; left in place"
		} else if vault := secretref.VaultName(entry.Value); !strings.EqualFold(vault, o.VaultName) {
			d.Action = ActionNoop
			d.Reason = fmt.Sprintf("references vault '%s'", vault)
		} else {
			status, reason, err := e.checkSecret(ctx, name, o)
			if err != nil {
				return report, err
			}
			switch status {
			case secretFound:
				d.Action = ActionNoop
			case secretMissing:
				e.recorder.MissingSecret()
				d.Action = ActionDelete
				d.Reason = reason
			default:
				d.Action = ActionWarning
				d.Reason = reason + "; left in place"
			}
		}

		if d.Action != ActionDelete {
			e.emit(report, d)
			continue
		}
		key, lbl := entry.Key, entry.Label
		if err := e.commit(ctx, d, o, report, func(ctx context.Context) error {
			return e.store.DeleteEntry(ctx, key, lbl)
		}); err != nil {
			return report, err
		}
	}

	if len(report.Failures) > 0 {
		return report, ErrItemFailures
	}
	return report, nil
}

func (e *Engine) snapshot(ctx context.Context, o Options) (snapshot, error) {
	var entries []item.Entry
	err := withCallTimeout(ctx, o.CallTimeout, func(ctx context.Context) error {
		var err error
		entries, err = e.store.ListEntries(ctx)
		return err
	})
	if err != nil {
		if dserrors.IsAuthentication(err) {
			return nil, dserrors.AuthenticationError{Service: storeService, Err: err}
		}
		return nil, fmt.Errorf("failed to list %s entries: %w", storeService, err)
	}
	return snapshot(entries), nil
}

type secretStatus int

const (
	secretFound secretStatus = iota
	secretMissing
	secretUnreadable
)

// checkSecret looks the secret up in the vault. Authentication failures are fatal; any other
// failure makes the secret unreadable, with the reason saying why.
func (e *Engine) checkSecret(ctx context.Context, name string, o Options) (secretStatus, string, error) {
	var exists bool
	err := withCallTimeout(ctx, o.CallTimeout, func(ctx context.Context) error {
		var err error
		exists, err = e.vault.SecretExists(ctx, name)
		return err
	})
	switch {
	case err != nil && dserrors.IsAuthentication(err):
		return secretUnreadable, "", dserrors.AuthenticationError{Service: vaultService, Err: err}
	case err != nil:
		return secretUnreadable, fmt.Sprintf("secret '%s' could not be read from vault '%s': %v", name, o.VaultName, err), nil
	case !exists:
		return secretMissing, fmt.Sprintf("secret '%s' not found in vault '%s'", name, o.VaultName), nil
	default:
		return secretFound, "", nil
	}
}

// commit executes a mutating decision unless the run is a dry run, then
// records it. Only authentication failures, or any failure under
// StopOnError, are returned.
func (e *Engine) commit(ctx context.Context, d Decision, o Options, report *Report, call func(context.Context) error) error {
	if o.DryRun {
		e.emit(report, d)
		return nil
	}

	err := withCallTimeout(ctx, o.CallTimeout, call)
	if err == nil {
		e.emit(report, d)
		return nil
	}

	if dserrors.IsAuthentication(err) {
		authErr := dserrors.AuthenticationError{Service: storeService, Err: err}
		d.Err, d.Error = authErr, authErr.Error()
		e.emit(report, d)
		return authErr
	}

	opErr := dserrors.StoreOperationError{Op: strings.ToLower(string(d.Action)), Key: d.Key, Label: d.Label, Err: err}
	d.Err, d.Error = opErr, opErr.Error()
	report.Failures = append(report.Failures, opErr)
	e.recorder.StoreError(opErr.Op)
	e.emit(report, d)

	if o.StopOnError {
		return opErr
	}
	return nil
}

func (e *Engine) emit(report *Report, d Decision) {
	report.Decisions = append(report.Decisions, d)
	e.recorder.Decision(d)
	if e.observer != nil {
		e.observer(d)
	}
}

// toEntry computes the wire form of a non-purge item.
func toEntry(c item.ConfigItem, vaultName string) item.Entry {
	entry := item.Entry{
		Key:   c.Key,
		Label: label.Encode(c),
		Value: c.Value,
	}
	if c.IsSecretRef {
		entry.Value = secretref.Encode(vaultName, c.Value)
		entry.ContentType = secretref.ContentType
	}
	return entry
}

func hasSecretRefs(items []item.ConfigItem) bool {
	for _, c := range items {
		if c.IsSecretRef && !c.Purge {
			return true
		}
	}
	return false
}

func withCallTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return dserrors.UserError{
			Message:    "Azure call timed out",
			Details:    fmt.Sprintf("Operation exceeded %s timeout", timeout),
			Suggestion: "Increase --timeout or store.timeout_ms, and check network access to the store",
			Err:        err,
		}
	}
	return err
}

type snapshot []item.Entry

func (s snapshot) find(key, lbl string) (item.Entry, bool) {
	for _, e := range s {
		if e.Key == key && e.Label == lbl {
			return e, true
		}
	}
	return item.Entry{}, false
}

type nopRecorder struct{}

func (nopRecorder) Decision(Decision)                 {}
func (nopRecorder) StoreError(string)                 {}
func (nopRecorder) MissingSecret()                    {}
func (nopRecorder) RunFinished(string, time.Duration) {}
