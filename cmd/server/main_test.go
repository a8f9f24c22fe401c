package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql"
	"github.com/tuannm99/kvsql/internal"
	"github.com/tuannm99/kvsql/server/kvsqlwire"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--addr", ":7777", "--storage", "log", "--data-dir", t.TempDir()}))

	var f serverFlags
	f.addr, _ = cmd.Flags().GetString("addr")
	f.mode, _ = cmd.Flags().GetString("storage")
	f.workdir, _ = cmd.Flags().GetString("data-dir")

	cfg, err := loadConfig(cmd, &f)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, internal.StorageLog, cfg.Storage.Mode)
}

func TestLoadConfig_InvalidMode(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--storage", "tape"}))
	f := serverFlags{mode: "tape"}

	_, err := loadConfig(cmd, &f)
	assert.ErrorContains(t, err, "unknown storage.mode")
}

func TestHTTPHandler(t *testing.T) {
	db, err := kvsql.Open(internal.DefaultConfig())
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Execute("CREATE TABLE t (a INT);")
	require.NoError(t, err)

	h := newHTTPHandler(db, kvsqlwire.NewServer(db))

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []any{"t"}, body["tables"])
		assert.Contains(t, body, "server")
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "kvsql_mvcc_txn_total")
	})
}
