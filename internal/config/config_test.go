package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("IDENTITY_PROVIDER", "jwt")
	t.Setenv("APP_ENV", "development")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.TokenExpires)
	assert.Equal(t, 60*time.Second, cfg.CatalogCacheTTL)
	assert.True(t, cfg.LockOrderRows)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("IDENTITY_PROVIDER", "JWT")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("ORDER_LOCK_PRICES", "false")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("APP_ENV", "Production")

	cfg := Load()

	assert.Equal(t, IdentityLocalJWT, cfg.IdentityProvider)
	assert.Equal(t, 2*time.Hour, cfg.TokenExpires)
	assert.False(t, cfg.LockOrderRows)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "local jwt ok",
			cfg:  Config{AppPort: "8080", IdentityProvider: IdentityLocalJWT, JWTSecret: "s"},
		},
		{
			name:    "local jwt without secret",
			cfg:     Config{AppPort: "8080", IdentityProvider: IdentityLocalJWT},
			wantErr: "JWT_SECRET must be set",
		},
		{
			name: "supabase with anon key",
			cfg:  Config{AppPort: "8080", IdentityProvider: IdentitySupabase, SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "anon"},
		},
		{
			name:    "supabase without url",
			cfg:     Config{AppPort: "8080", IdentityProvider: IdentitySupabase, SupabaseAnonKey: "anon"},
			wantErr: "SUPABASE_URL must be set",
		},
		{
			name:    "unknown provider",
			cfg:     Config{AppPort: "8080", IdentityProvider: "ldap"},
			wantErr: "IDENTITY_PROVIDER must be jwt or supabase",
		},
		{
			name:    "missing port",
			cfg:     Config{IdentityProvider: IdentityLocalJWT, JWTSecret: "s"},
			wantErr: "APP_PORT must be set",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tc.wantErr)
		})
	}
}
