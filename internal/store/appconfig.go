// Package store adapts the Azure App Configuration data plane to the
// reconciliation engine.
package store

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azappconfig"

	"github.com/systmms/appcfg/internal/item"
	"github.com/systmms/appcfg/internal/logging"
)

// SettingsClientAPI is the subset of *azappconfig.Client used by Store.
type SettingsClientAPI interface {
	NewListSettingsPager(selector azappconfig.SettingSelector, options *azappconfig.ListSettingsOptions) *runtime.Pager[azappconfig.ListSettingsPageResponse]
	AddSetting(ctx context.Context, key string, value *string, options *azappconfig.AddSettingOptions) (azappconfig.AddSettingResponse, error)
	SetSetting(ctx context.Context, key string, value *string, options *azappconfig.SetSettingOptions) (azappconfig.SetSettingResponse, error)
	DeleteSetting(ctx context.Context, key string, options *azappconfig.DeleteSettingOptions) (azappconfig.DeleteSettingResponse, error)
}

// Store is an App Configuration store.
type Store struct {
	client   SettingsClientAPI
	endpoint string
	logger   *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSettingsClient sets the client used to talk to the store.
func WithSettingsClient(client SettingsClientAPI) Option {
	return func(s *Store) {
		s.client = client
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New builds a Store from resolved connection settings. When no client is
// injected, one is created from the connection string or, failing that,
// from the endpoint and an Azure credential.
func New(conn Connection, opts ...Option) (*Store, error) {
	s := &Store{endpoint: conn.Endpoint}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.New(false, false)
	}

	if s.client == nil {
		client, err := newSettingsClient(conn)
		if err != nil {
			return nil, err
		}
		s.client = client
	}
	return s, nil
}

func newSettingsClient(conn Connection) (*azappconfig.Client, error) {
	if conn.ConnectionString != "" {
		client, err := azappconfig.NewClientFromConnectionString(conn.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create App Configuration client: %w", err)
		}
		return client, nil
	}

	if conn.Credential == nil {
		return nil, fmt.Errorf("no credential available for %s", conn.Endpoint)
	}
	client, err := azappconfig.NewClient(conn.Endpoint, conn.Credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create App Configuration client: %w", err)
	}
	return client, nil
}

// Endpoint returns the store endpoint, if known.
func (s *Store) Endpoint() string {
	return s.endpoint
}

// ListEntries pages through every key-value in the store.
func (s *Store) ListEntries(ctx context.Context) ([]item.Entry, error) {
	var entries []item.Entry

	pager := s.client.NewListSettingsPager(azappconfig.SettingSelector{
		KeyFilter:   to.Ptr("*"),
		LabelFilter: to.Ptr("*"),
	}, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, setting := range page.Settings {
			entries = append(entries, fromSetting(setting))
		}
	}

	s.logger.Debug("Listed %d entries from App Configuration", len(entries))
	return entries, nil
}

// AddEntry creates an entry. It fails if the key and label already exist.
func (s *Store) AddEntry(ctx context.Context, e item.Entry) error {
	s.logger.Debug("Adding '%s' (label %q)", e.Key, e.Label)
	_, err := s.client.AddSetting(ctx, e.Key, to.Ptr(e.Value), &azappconfig.AddSettingOptions{
		Label:       optional(e.Label),
		ContentType: optional(e.ContentType),
	})
	return err
}

// SetEntry overwrites an entry. A non-empty ETag makes the write
// conditional.
func (s *Store) SetEntry(ctx context.Context, e item.Entry) error {
	s.logger.Debug("Setting '%s' (label %q)", e.Key, e.Label)
	opts := &azappconfig.SetSettingOptions{
		Label:       optional(e.Label),
		ContentType: optional(e.ContentType),
	}
	if e.ETag != "" {
		opts.OnlyIfUnchanged = to.Ptr(azcore.ETag(e.ETag))
	}
	_, err := s.client.SetSetting(ctx, e.Key, to.Ptr(e.Value), opts)
	return err
}

// DeleteEntry deletes the entry with key and label. An empty label targets
// the entry without a label.
func (s *Store) DeleteEntry(ctx context.Context, key, label string) error {
	s.logger.Debug("Deleting '%s' (label %q)", key, label)
	_, err := s.client.DeleteSetting(ctx, key, &azappconfig.DeleteSettingOptions{
		Label: optional(label),
	})
	return err
}

func fromSetting(setting azappconfig.Setting) item.Entry {
	e := item.Entry{
		Key:         deref(setting.Key),
		Label:       deref(setting.Label),
		Value:       deref(setting.Value),
		ContentType: deref(setting.ContentType),
	}
	if setting.ETag != nil {
		e.ETag = string(*setting.ETag)
	}
	return e
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return to.Ptr(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
