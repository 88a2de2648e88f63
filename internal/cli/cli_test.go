package cli_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricing = "testdata/pricing.yaml"

func TestParseParams(t *testing.T) {
	params, err := cli.ParseParams(`{"a":1,"name":"x"}`, []string{"name=y", "n=3", "ok=true", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "name": "y", "n": 3, "ok": true, "empty": ""}, params)

	_, err = cli.ParseParams("", []string{"novalue"})
	assert.Error(t, err)

	_, err = cli.ParseParams("{", nil)
	assert.Error(t, err)
}

func TestDecodeConfig(t *testing.T) {
	cfg := cli.DefaultConfig()
	err := cli.DecodeConfig([]byte(`
log_level: debug
log_format: json
concurrent_forks: true
store:
  backend: redis
  redis:
    addr: "redis:6379"
    ttl: 90s
repository:
  backend: badger
  path: /tmp/tendril
lock:
  enabled: true
  ttl: 5s
`), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.ConcurrentForks)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 90*time.Second, cfg.Store.Redis.TTL)
	assert.Equal(t, "badger", cfg.Repository.Backend)
	assert.Equal(t, 5*time.Second, cfg.Lock.TTL)
}

func TestDecodeConfig_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "colour: red",
		"unknown store":   "store: {backend: etcd}",
		"badger no path":  "repository: {backend: badger}",
		"unknown backend": "repository: {backend: postgres}",
		"short key":       "store: {encryption_key: c2hvcnQ=}",
		"mask on memory":  "store: {mask: [password]}",
		"log format":      "log_format: xml",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := cli.DefaultConfig()
			assert.Error(t, cli.DecodeConfig([]byte(doc), &cfg))
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := cli.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, cli.DefaultConfig(), cfg)

	_, err = cli.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), true)
	assert.Error(t, err)
}

func TestRun_Text(t *testing.T) {
	var out bytes.Buffer
	err := cli.Run(context.Background(), cli.RunOptions{
		FlowPath: pricing,
		Params:   []string{"price=3", "quantity=4"},
	}, cli.DefaultConfig(), logging.NewNop(), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "main: 12")
}

func TestRun_JSONAndTrace(t *testing.T) {
	var out bytes.Buffer
	err := cli.Run(context.Background(), cli.RunOptions{
		FlowPath:   pricing,
		Container:  "main",
		ParamsJSON: `{"price": 2, "quantity": 5}`,
		JSON:       true,
		Trace:      true,
	}, cli.DefaultConfig(), logging.NewNop(), &out)
	require.NoError(t, err)

	line, _, _ := bytes.Cut(out.Bytes(), []byte("\n"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(line, &got))
	assert.Equal(t, float64(10), got["result"])
	assert.Contains(t, out.String(), "class remember visited;")
}

func TestRun_HandledFailure(t *testing.T) {
	var out bytes.Buffer
	err := cli.Run(context.Background(), cli.RunOptions{FlowPath: pricing}, cli.DefaultConfig(), logging.NewNop(), &out)
	require.NoError(t, err, "the default handler catches the script error")
	assert.Contains(t, out.String(), "failed")
}

func TestRun_FileStore(t *testing.T) {
	dir := t.TempDir()
	cfg := cli.DefaultConfig()
	cfg.Store.Backend = "file"
	cfg.Store.Path = dir

	var out bytes.Buffer
	err := cli.Run(context.Background(), cli.RunOptions{
		FlowPath: pricing,
		Params:   []string{"price=1", "quantity=7"},
	}, cfg, logging.NewNop(), &out)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the stored total lands on disk")
}

func TestRun_RedisStoreAndLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := cli.DefaultConfig()
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Lock.Enabled = true

	var out bytes.Buffer
	err := cli.Run(context.Background(), cli.RunOptions{
		FlowPath: pricing,
		Params:   []string{"price=2", "quantity=2"},
	}, cfg, logging.NewNop(), &out)
	require.NoError(t, err)

	assert.True(t, mr.Exists("tendril:store:last_total"))
	assert.False(t, mr.Exists("tendril:lock:container:main"), "the lock is released after the run")
}

func TestRun_EncryptedStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := cli.DefaultConfig()
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	require.NoError(t, cfg.Validate())

	err := cli.Run(context.Background(), cli.RunOptions{
		FlowPath: pricing,
		Params:   []string{"price=6", "quantity=7"},
	}, cfg, logging.NewNop(), &bytes.Buffer{})
	require.NoError(t, err)

	raw, err := mr.Get("tendril:store:last_total")
	require.NoError(t, err)
	assert.Contains(t, raw, "__encrypted__")
}

func TestRun_UnknownContainer(t *testing.T) {
	err := cli.Run(context.Background(), cli.RunOptions{FlowPath: pricing, Container: "nope"},
		cli.DefaultConfig(), logging.NewNop(), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cli.Validate(pricing, &out))

	out.Reset()
	err := cli.Validate("testdata/broken.yaml", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false_element")
	assert.Contains(t, out.String(), "orphan")
}

func TestInspect(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cli.Inspect(pricing, "", "mermaid", &out))
	assert.Contains(t, out.String(), "graph TD")

	out.Reset()
	require.NoError(t, cli.Inspect(pricing, "main", "markdown", &out))
	assert.Contains(t, out.String(), "| `total` | action |")

	out.Reset()
	require.NoError(t, cli.Inspect(pricing, "main", "json", &out))
	assert.Contains(t, out.String(), `"id": "remember"`)

	assert.Error(t, cli.Inspect(pricing, "main", "svg", &out))
}
