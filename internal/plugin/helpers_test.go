package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

// writePlugin creates a plugin directory with a manifest and a shell script.
func writePlugin(t *testing.T, root, name, script string, events ...EventType) string {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	manifest := Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: "run.sh",
		Events:     events,
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755))

	return dir
}

func newPlugin(t *testing.T, script string) *Plugin {
	t.Helper()
	dir := writePlugin(t, t.TempDir(), "test-plugin", script, EventRepMilestone)
	return &Plugin{
		Manifest:   Manifest{Name: "test-plugin", Executable: "run.sh"},
		Path:       dir,
		Executable: filepath.Join(dir, "run.sh"),
	}
}

const successScript = `#!/bin/sh
cat > /dev/null
echo '{"success":true}'
`
