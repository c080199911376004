package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azappconfig"
)

// FakeSettingsClient is an in-memory stand-in for *azappconfig.Client.
type FakeSettingsClient struct {
	mu sync.Mutex

	Settings []azappconfig.Setting
	// PageSize controls how many settings each listed page holds.
	PageSize int
	// ListErr is returned when fetching the first page.
	ListErr error
	// Errors maps a key to the error returned by any mutation of it.
	Errors map[string]error

	// Last options seen by each mutation, for assertions.
	LastAdd    *azappconfig.AddSettingOptions
	LastSet    *azappconfig.SetSettingOptions
	LastDelete *azappconfig.DeleteSettingOptions
	PagesRead  int

	etagSeq int
}

// NewFakeSettingsClient creates an empty client that pages two settings at a time.
func NewFakeSettingsClient() *FakeSettingsClient {
	return &FakeSettingsClient{PageSize: 2, Errors: make(map[string]error)}
}

// Put stores a setting directly, assigning a fresh ETag.
func (f *FakeSettingsClient) Put(key, label, value, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(key, ptrOrNil(label), value, ptrOrNil(contentType))
}

// NewListSettingsPager pages over a copy of Settings.
func (f *FakeSettingsClient) NewListSettingsPager(selector azappconfig.SettingSelector, options *azappconfig.ListSettingsOptions) *runtime.Pager[azappconfig.ListSettingsPageResponse] {
	f.mu.Lock()
	settings := make([]azappconfig.Setting, len(f.Settings))
	copy(settings, f.Settings)
	listErr := f.ListErr
	size := f.PageSize
	f.mu.Unlock()
	if size <= 0 {
		size = len(settings) + 1
	}

	offset := 0
	return runtime.NewPager(runtime.PagingHandler[azappconfig.ListSettingsPageResponse]{
		More: func(azappconfig.ListSettingsPageResponse) bool {
			return offset < len(settings)
		},
		Fetcher: func(ctx context.Context, _ *azappconfig.ListSettingsPageResponse) (azappconfig.ListSettingsPageResponse, error) {
			if listErr != nil {
				return azappconfig.ListSettingsPageResponse{}, listErr
			}
			end := offset + size
			if end > len(settings) {
				end = len(settings)
			}
			page := azappconfig.ListSettingsPageResponse{Settings: settings[offset:end]}
			offset = end
			f.mu.Lock()
			f.PagesRead++
			f.mu.Unlock()
			return page, nil
		},
	})
}

// AddSetting creates a setting, failing with 412 if it already exists.
func (f *FakeSettingsClient) AddSetting(ctx context.Context, key string, value *string, options *azappconfig.AddSettingOptions) (azappconfig.AddSettingResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastAdd = options
	if err := f.Errors[key]; err != nil {
		return azappconfig.AddSettingResponse{}, err
	}

	var label, contentType *string
	if options != nil {
		label, contentType = options.Label, options.ContentType
	}
	if f.index(key, label) >= 0 {
		return azappconfig.AddSettingResponse{}, PreconditionFailedError()
	}
	s := f.put(key, label, deref(value), contentType)
	return azappconfig.AddSettingResponse{Setting: s}, nil
}

// SetSetting creates or replaces a setting, honoring OnlyIfUnchanged.
func (f *FakeSettingsClient) SetSetting(ctx context.Context, key string, value *string, options *azappconfig.SetSettingOptions) (azappconfig.SetSettingResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastSet = options
	if err := f.Errors[key]; err != nil {
		return azappconfig.SetSettingResponse{}, err
	}

	var label, contentType *string
	var ifUnchanged *azcore.ETag
	if options != nil {
		label, contentType, ifUnchanged = options.Label, options.ContentType, options.OnlyIfUnchanged
	}
	i := f.index(key, label)
	if ifUnchanged != nil && (i < 0 || f.Settings[i].ETag == nil || *f.Settings[i].ETag != *ifUnchanged) {
		return azappconfig.SetSettingResponse{}, PreconditionFailedError()
	}
	if i >= 0 {
		f.Settings = append(f.Settings[:i], f.Settings[i+1:]...)
	}
	s := f.put(key, label, deref(value), contentType)
	return azappconfig.SetSettingResponse{Setting: s}, nil
}

// DeleteSetting removes a setting. Deleting a missing setting succeeds.
func (f *FakeSettingsClient) DeleteSetting(ctx context.Context, key string, options *azappconfig.DeleteSettingOptions) (azappconfig.DeleteSettingResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastDelete = options
	if err := f.Errors[key]; err != nil {
		return azappconfig.DeleteSettingResponse{}, err
	}

	var label *string
	if options != nil {
		label = options.Label
	}
	if i := f.index(key, label); i >= 0 {
		f.Settings = append(f.Settings[:i], f.Settings[i+1:]...)
	}
	return azappconfig.DeleteSettingResponse{}, nil
}

func (f *FakeSettingsClient) put(key string, label *string, value string, contentType *string) azappconfig.Setting {
	f.etagSeq++
	s := azappconfig.Setting{
		Key:         to.Ptr(key),
		Label:       label,
		Value:       to.Ptr(value),
		ContentType: contentType,
		ETag:        to.Ptr(azcore.ETag(fmt.Sprintf("W/\"%d\"", f.etagSeq))),
	}
	f.Settings = append(f.Settings, s)
	return s
}

func (f *FakeSettingsClient) index(key string, label *string) int {
	for i, s := range f.Settings {
		if deref(s.Key) == key && deref(s.Label) == deref(label) {
			return i
		}
	}
	return -1
}

func ptrOrNil(s string) *string {
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
