package azauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/appcfg/internal/errors"
)

func TestSettings_Method(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings Settings
		want     Method
	}{
		{"zero value", Settings{}, MethodDefault},
		{"managed identity", Settings{UseManagedIdentity: true}, MethodManagedIdentity},
		{"user assigned identity", Settings{UseManagedIdentity: true, UserAssignedIdentityID: "abc"}, MethodManagedIdentity},
		{"client secret", Settings{TenantID: "t", ClientID: "c", ClientSecret: "s"}, MethodClientSecret},
		{"managed identity wins", Settings{UseManagedIdentity: true, ClientSecret: "s"}, MethodManagedIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.Method())
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()

	err := Settings{ClientSecret: "s", ClientID: "c"}.Validate()
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "tenant_id", cfgErr.Field)

	err = Settings{ClientSecret: "s", TenantID: "t"}.Validate()
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "client_id", cfgErr.Field)

	assert.NoError(t, Settings{}.Validate())
	assert.NoError(t, Settings{UseManagedIdentity: true}.Validate())
}

func TestNewCredential(t *testing.T) {
	t.Parallel()

	cred, err := NewCredential(Settings{
		TenantID:     "00000000-0000-0000-0000-000000000000",
		ClientID:     "11111111-1111-1111-1111-111111111111",
		ClientSecret: "not-a-real-secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, cred)

	cred, err = NewCredential(Settings{UseManagedIdentity: true, UserAssignedIdentityID: "22222222-2222-2222-2222-222222222222"})
	require.NoError(t, err)
	assert.NotNil(t, cred)

	_, err = NewCredential(Settings{ClientSecret: "s"})
	assert.Error(t, err)
}
