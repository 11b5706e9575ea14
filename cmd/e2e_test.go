package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useSQLiteEnv points config at a fresh SQLite database in a temp working
// directory.
func useSQLiteEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	t.Setenv("TRADEWATCH_STORE_DRIVER", "sqlite")
	t.Setenv("TRADEWATCH_STORE_DATABASE_URL", filepath.Join(dir, "tradewatch.db"))
	t.Setenv("TRADEWATCH_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_IngestIsIdempotent(t *testing.T) {
	useSQLiteEnv(t)
	path := writeFixture(t, "form4.xml", form4Fixture)

	out, err := execute(t, "ingest", path, "--variant", "form4_xml", "--source-id", "0001-24-000001")
	require.NoError(t, err)
	assert.Contains(t, out, `"trades_inserted": 1`)
	assert.Contains(t, out, `"accession": "0001-24-000001"`)

	out, err = execute(t, "ingest", path, "--variant", "form4_xml", "--source-id", "0001-24-000001")
	require.NoError(t, err)
	assert.Contains(t, out, `"trades_inserted": 0`)
}

func TestCLI_TrackUntrack(t *testing.T) {
	useSQLiteEnv(t)

	out, err := execute(t, "track", "Jane Doe", "Alan Smith")
	require.NoError(t, err)
	assert.Contains(t, out, "tracking Jane Doe")

	out, err = execute(t, "tracked")
	require.NoError(t, err)
	assert.Equal(t, "Alan Smith\nJane Doe\n", out)

	_, err = execute(t, "untrack", "Jane Doe")
	require.NoError(t, err)

	out, err = execute(t, "tracked")
	require.NoError(t, err)
	assert.Equal(t, "Alan Smith\n", out)
}

func TestCLI_MigrateRejectsUnknownDriver(t *testing.T) {
	useSQLiteEnv(t)
	t.Setenv("TRADEWATCH_STORE_DRIVER", "mysql")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestServeUntilDone_ShutsDownOnCancel(t *testing.T) {
	srv := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
