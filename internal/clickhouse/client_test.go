package clickhouse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "expothesis", r.URL.Query().Get("database"))
		assert.Equal(t, "JSON", r.URL.Query().Get("default_format"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "SELECT * FROM expothesis.experiments FINAL", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"meta": [{"name": "id", "type": "String"}],
			"data": [
				{"id": "abc", "sampling_seed": "42", "power": 0.8},
				{"id": "def", "sampling_seed": "0", "power": 0}
			],
			"rows": 2
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "expothesis", time.Second)
	rows, err := c.FetchAll(context.Background(), "experiments")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "abc", rows[0]["id"])
	// UInt64 columns arrive as strings, floats as json.Number
	assert.Equal(t, "42", rows[0]["sampling_seed"])
	assert.Equal(t, json.Number("0.8"), rows[0]["power"])
}

func TestQuery_ErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Code: 60. DB::Exception: Table expothesis.nope does not exist"))
	}))
	defer srv.Close()

	c := New(srv.URL, "expothesis", time.Second)
	_, err := c.Query(context.Background(), "SELECT * FROM nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "does not exist")
}

func TestPing(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "SELECT 1", string(body))
		_, _ = w.Write([]byte(`{"data": [{"1": 1}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "expothesis", time.Second)
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, "expothesis", time.Second)
	err := c.Ping(context.Background())
	require.Error(t, err)
}
