package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/hybridsearch/pkg/version"
)

func TestVersionCmd_DefaultOutput(t *testing.T) {
	// Given: a version command
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	// When: executing without flags
	err := cmd.Execute()

	// Then: it should output version string
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "hybridsearch", "Output should contain program name")
	assert.Contains(t, output, version.Version, "Output should contain version")
	assert.Contains(t, output, "commit", "Output should contain commit info")
}

func TestVersionCmd_ShortOutput(t *testing.T) {
	// Given: a version command with --short flag
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--short"})

	// When: executing with --short
	err := cmd.Execute()

	// Then: it should output only version number
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(buf.String()), "Short output should be just version")
}

func TestVersionCmd_FullOutput(t *testing.T) {
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--full"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "git commit: ")
	assert.Contains(t, buf.String(), "platform: ")
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	// Given: a version command with --json flag
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	// When: executing with --json
	err := cmd.Execute()

	// Then: it should output valid JSON with all fields
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info), "Output should be valid JSON")

	assert.Equal(t, version.Version, info["version"], "JSON should contain version")
	for _, key := range []string{"commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, info, key, "JSON should contain %s field", key)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	// When: running the root command with --version
	out, err := runCLI(t, "--version")

	// Then: the version template is used
	require.NoError(t, err)
	assert.Equal(t, "hybridsearch version "+version.Version+"\n", out)
}
