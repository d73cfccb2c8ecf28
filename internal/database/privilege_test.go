package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsResolve(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		want     Privilege
		expected string
		granted  Privilege
		err      error
	}{
		{"service preferred", Credentials{AnonURL: "anon", ServiceURL: "svc"}, PrivilegeService, "svc", PrivilegeService, nil},
		{"service falls back to anon", Credentials{AnonURL: "anon"}, PrivilegeService, "anon", PrivilegeAnon, nil},
		{"anon stays anon", Credentials{AnonURL: "anon", ServiceURL: "svc"}, PrivilegeAnon, "anon", PrivilegeAnon, nil},
		{"anon never upgraded", Credentials{ServiceURL: "svc"}, PrivilegeAnon, "", "", ErrNoCredentials},
		{"nothing configured", Credentials{}, PrivilegeService, "", "", ErrNoCredentials},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			url, granted, err := tc.creds.Resolve(tc.want)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, url)
			assert.Equal(t, tc.granted, granted)
		})
	}
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_initial_schema.sql"))
	assert.Equal(t, 12, migrationVersion("012_more.sql"))
	assert.Equal(t, 0, migrationVersion("readme.md"))
	assert.Equal(t, 0, migrationVersion("x.sql"))
}

func TestNewSQLite_InMemoryAppliesSchema(t *testing.T) {
	db, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('models', 'messages')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
