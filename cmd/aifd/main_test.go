package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aims/caerev"
	"github.com/goliatone/go-aif/config"
	"github.com/goliatone/go-aif/configstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"version"}, &out, &out))
	assert.Equal(t, "aifd dev\n", out.String())
}

func TestInspect(t *testing.T) {
	var aiw []byte
	for _, doc := range caerev.Documents() {
		if doc.Kind == aif.KindAIW {
			aiw = doc.Data
		}
	}
	path := writeFile(t, "aiw.json", string(aiw))

	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"inspect", path}, &out, &out))
	assert.Contains(t, out.String(), "workflow: CAE-REV")
	assert.Contains(t, out.String(), "AIM_TEMP_LIMIT <- SensorsDataChannel")
	assert.Contains(t, out.String(), "  ControlUnitSensorsReading\n")
}

func TestInspectMalformed(t *testing.T) {
	path := writeFile(t, "aiw.json", `{"title": "x"}`)
	var out bytes.Buffer
	err := execute(context.Background(), []string{"inspect", path}, &out, &out)
	assert.True(t, aif.HasCode(err, aif.ErrCodeMalformedMetadata))
}

func TestSeedWritesSQLite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "meta.db")
	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"seed", db}, &out, &out))
	assert.Contains(t, out.String(), "seeded 4 documents")

	store, err := configstore.OpenSQLite(context.Background(), db)
	require.NoError(t, err)
	defer store.Close()
	data, err := configstore.GetAIW(context.Background(), store, caerev.Workflow)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AIM_TEMP_LIMIT")
}

func TestRunBootsAndShutsDown(t *testing.T) {
	path := writeFile(t, "device.toml", `
[store]
kind = "memory"

[controller]
status_cron = "@every 1s"

[metrics]
addr = "127.0.0.1:0"
`)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, execute(ctx, []string{"run", "-c", path}, &out, io.Discard))
}

func TestRunReportsBootFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Kind = config.StoreDir
	cfg.Store.Path = t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := run(ctx, cfg, aif.NopLogger{})
	assert.True(t, configstore.IsNotFound(err))
}

func TestOpenEmbeddedStore(t *testing.T) {
	store, done, err := openStore(context.Background(), config.StoreConfig{Kind: config.StoreEmbedded}, aif.NopLogger{})
	require.NoError(t, err)
	defer done()

	data, err := configstore.GetAIM(context.Background(), store, "AIM_TEMP_LIMIT")
	require.NoError(t, err)
	assert.Contains(t, string(data), "AIM_TEMP_LIMIT")
}

func TestOpenStoreWrapsRetries(t *testing.T) {
	store, done, err := openStore(context.Background(), config.StoreConfig{
		Kind:    config.StoreMemory,
		Retries: 2,
		Backoff: time.Millisecond,
	}, aif.NopLogger{})
	require.NoError(t, err)
	defer done()
	assert.IsType(t, &configstore.Retrying{}, store)

	data, err := configstore.GetAIF(context.Background(), store, caerev.AIFName)
	require.NoError(t, err)
	assert.Contains(t, string(data), caerev.AIFName)
}
