package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative file", "config.json", false},
		{"nested relative", "etc/relay/config.json", false},
		{"absolute path", "/etc/whatsrelay/config.json", false},
		{"dots in name", "config..json", false},
		{"empty", "", true},
		{"parent traversal", "../config.json", true},
		{"embedded traversal", "etc/../../config.json", true},
		{"absolute traversal", "/etc/../root/config.json", true},
		{"nul byte", "config\x00.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfigPath(t *testing.T) {
	assert.NoError(t, ValidateConfigPath("config.json"))
	assert.NoError(t, ValidateConfigPath("/tmp/relay/CONFIG.JSON"))
	assert.Error(t, ValidateConfigPath("config.yaml"))
	assert.Error(t, ValidateConfigPath("config"))
	assert.Error(t, ValidateConfigPath("../config.json"))
}
