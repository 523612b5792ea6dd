package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCommand_Success(t *testing.T) {
	// Create test server that returns 200 OK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	t.Setenv("SERVER_URL", server.URL)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run([]string{"sbi", "server", "health"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Bot is healthy")
}

func TestHealthCommand_Failure(t *testing.T) {
	// Create test server that returns 500
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"sbi", "--server-url", server.URL, "server", "health"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhealthy status")
}

func TestHealthCommand_MissingServerURL(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"sbi", "--server-url", "", "server", "health"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server-url is required")
}

func TestVersionCommand(t *testing.T) {
	// Set version info
	version = "1.0.0"
	commit = "abc123"
	date = "2025-10-10"

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run([]string{"sbi", "server", "version"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Version: 1.0.0")
	assert.Contains(t, out.String(), "Commit:  abc123")
}
