package flow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specYAML = `
name: support
entry: triage_request
session:
  timeout: 30s
  logging_level: debug
  context:
    tenant: acme
`

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec(strings.NewReader(specYAML))
	require.NoError(t, err)

	assert.Equal(t, "support", spec.Name)
	assert.Equal(t, "triage_request", spec.Entry)

	cfg, err := spec.SessionConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Timeout)
	assert.Equal(t, 30*time.Second, *cfg.Timeout)
	assert.Equal(t, "acme", cfg.Context["tenant"])
}

func TestParseSpec_RejectsUnknownFields(t *testing.T) {
	_, err := ParseSpec(strings.NewReader("name: x\nentry: y\nentrypoint: z\n"))
	assert.Error(t, err)
}

func TestParseSpec_RejectsUnknownSessionOptions(t *testing.T) {
	spec, err := ParseSpec(strings.NewReader("name: x\nentry: y\nsession:\n  retries: 3\n"))
	require.NoError(t, err)

	_, err = spec.SessionConfig()
	assert.Error(t, err)
}

func TestParseSpec_RequiresNameAndEntry(t *testing.T) {
	_, err := ParseSpec(strings.NewReader("entry: y\n"))
	assert.Error(t, err)

	_, err = ParseSpec(strings.NewReader("name: x\n"))
	assert.Error(t, err)
}

func TestLoadSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "support.yaml")
	require.NoError(t, os.WriteFile(path, []byte(specYAML), 0o600))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "support", spec.Name)

	_, err = LoadSpec(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFromSpec(t *testing.T) {
	spec, err := ParseSpec(strings.NewReader(specYAML))
	require.NoError(t, err)

	st := newRecordingStore()
	r := testRegistry(t)

	f, err := FromSpec(spec, func(o *Options) {
		o.Resolver = r
		o.Store = st
	})
	require.NoError(t, err)
	assert.Equal(t, "support", f.Name())
	assert.Equal(t, "triage_request", f.Entry())

	// The entry is only resolved at invocation time.
	_, err = f.Invoke(context.Background(), nil)
	assert.Error(t, err)
}
