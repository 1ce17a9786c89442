package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	id1 := NewSessionID()
	id2 := NewSessionID()

	assert.NotEqual(t, id1, id2)
	assert.True(t, strings.HasPrefix(id1, "session_"))
	assert.True(t, strings.HasPrefix(NewRequestID(), "req_"))
}

func TestGUID(t *testing.T) {
	assert.True(t, IsGUID(NewGUID()))
	assert.False(t, IsGUID("not-a-guid"))
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal string", "hello", "hello"},
		{"with control chars", "hello\x00world", "helloworld"},
		{"with newline", "hello\nworld", "helloworld"},
		{"with whitespace", "  hello  ", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"192.168.1.10:8080", "192.168.1.10:8080"},
		{"http://slam.local:8080/", "slam.local:8080"},
		{"WS://slam.local", "slam.local"},
		{" 10.0.0.2:9000\n", "10.0.0.2:9000"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeAddress(tt.input), tt.input)
	}
}
