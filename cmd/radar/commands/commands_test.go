package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPassword(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"with password", "postgres://radar:s3cret@db:5432/radar", "postgres://radar:xxxxx@db:5432/radar"},
		{"without password", "postgres://radar@db:5432/radar", "postgres://radar@db:5432/radar"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskPassword(tt.in))
		})
	}
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"api", "scheduler", "digest", "ingest", "migrate", "test-db"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
