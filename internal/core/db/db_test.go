package db

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "relative path",
			url:      "sqlite://appraisal.db",
			expected: "appraisal.db?_foreign_keys=on",
		},
		{
			name:     "absolute path",
			url:      "sqlite:///var/lib/appraisal.db",
			expected: "/var/lib/appraisal.db?_foreign_keys=on",
		},
		{
			name:     "caller parameters carry through",
			url:      "sqlite://appraisal.db?cache=shared&mode=rwc",
			expected: "appraisal.db?_foreign_keys=on&cache=shared&mode=rwc",
		},
		{
			name:     "caller cannot disable foreign keys",
			url:      "sqlite://appraisal.db?_foreign_keys=off",
			expected: "appraisal.db?_foreign_keys=on",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sqliteDSN(u))
		})
	}
}

func TestOpen_SqliteWithParameters(t *testing.T) {
	db, err := Open("sqlite://" + t.TempDir() + "/appraisal.db?cache=shared")
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk, "foreign key enforcement must stay on")
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open("mysql://localhost/appraisal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database scheme")
}
