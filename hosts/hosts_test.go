package hosts

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEntry = Entry{
	IP:   netip.MustParseAddr("127.0.0.1"),
	Host: "gosredirector.ea.com",
}

func writeHostsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o0644))
	return path
}

func readHostsFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyAppends(t *testing.T) {
	t.Parallel()

	existing := "# localhost entries\n127.0.0.1 localhost\n\n::1 localhost\n"
	path := writeHostsFile(t, existing)

	require.NoError(t, Apply(path, testEntry))

	content := readHostsFile(t, path)
	assert.Equal(t, existing+"127.0.0.1 gosredirector.ea.com\n", content,
		"apply must append exactly one line and keep everything else")
}

func TestApplyReplaces(t *testing.T) {
	t.Parallel()

	path := writeHostsFile(t,
		"127.0.0.1 localhost\n"+
			"198.51.100.7 gosredirector.ea.com\n"+
			"# comment mentioning gosredirector.ea.com\n"+
			"203.0.113.1 other.example.com # gosredirector.ea.com in comment\n",
	)

	require.NoError(t, Apply(path, testEntry))

	content := readHostsFile(t, path)
	assert.Equal(t,
		"127.0.0.1 localhost\n"+
			"# comment mentioning gosredirector.ea.com\n"+
			"203.0.113.1 other.example.com # gosredirector.ea.com in comment\n"+
			"127.0.0.1 gosredirector.ea.com\n",
		content,
		"apply must replace the managed mapping only",
	)
	assert.Equal(t, 1, strings.Count(content, "127.0.0.1 gosredirector.ea.com"))
}

func TestApplyKeepsUnrelatedLines(t *testing.T) {
	t.Parallel()

	// Build a larger file with generated, unrelated entries.
	gofakeit.Seed(1)
	lines := make([]string, 0, 64)
	lines = append(lines, "# generated test file")
	for range 30 {
		lines = append(lines, fmt.Sprintf("%s %s", gofakeit.IPv4Address(), gofakeit.DomainName()))
	}
	lines = append(lines, "", "\t# indented comment", "  198.51.100.9   spaced.example.com  ")
	existing := strings.Join(lines, "\n") + "\n"
	path := writeHostsFile(t, existing)

	require.NoError(t, Apply(path, testEntry))
	require.NoError(t, Remove(path, testEntry.Host))

	assert.Equal(t, existing, readHostsFile(t, path),
		"apply and remove must leave unrelated lines byte-identical")
}

func TestSharedLineKeepsOtherHostnames(t *testing.T) {
	t.Parallel()

	path := writeHostsFile(t,
		"127.0.0.1 localhost\n"+
			"10.0.0.1 alias.example.com gosredirector.ea.com other.example.com # shared\n",
	)

	require.NoError(t, Apply(path, testEntry))
	assert.Equal(t,
		"127.0.0.1 localhost\n"+
			"10.0.0.1 alias.example.com other.example.com # shared\n"+
			"127.0.0.1 gosredirector.ea.com\n",
		readHostsFile(t, path),
		"unrelated hostnames on a shared line must survive apply",
	)

	require.NoError(t, Remove(path, testEntry.Host))
	assert.Equal(t,
		"127.0.0.1 localhost\n"+
			"10.0.0.1 alias.example.com other.example.com # shared\n",
		readHostsFile(t, path),
		"unrelated hostnames on a shared line must survive remove",
	)

	// A line mapping only the managed hostname is dropped whole.
	path = writeHostsFile(t, "198.51.100.7 gosredirector.ea.com\n")
	require.NoError(t, Remove(path, testEntry.Host))
	assert.Equal(t, "", readHostsFile(t, path))
}

func TestRemoveMissingEntry(t *testing.T) {
	t.Parallel()

	existing := "127.0.0.1 localhost\n"
	path := writeHostsFile(t, existing)

	require.NoError(t, Remove(path, testEntry.Host))
	assert.Equal(t, existing, readHostsFile(t, path))
}

func TestApplyMissingFile(t *testing.T) {
	t.Parallel()

	err := Apply(filepath.Join(t.TempDir(), "hosts"), testEntry)
	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestApplyPermissionDenied(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("running as root, cannot provoke a permission error")
	}

	existing := "127.0.0.1 localhost\n"
	path := writeHostsFile(t, existing)
	require.NoError(t, os.Chmod(path, 0o0444))

	err := Apply(path, testEntry)
	assert.ErrorIs(t, err, ErrPermission)

	require.NoError(t, os.Chmod(path, 0o0644))
	assert.Equal(t, existing, readHostsFile(t, path),
		"a denied write must leave the hosts file unmodified")
}

func TestLookup(t *testing.T) {
	t.Parallel()

	path := writeHostsFile(t, "127.0.0.1 localhost\n")

	_, ok, err := Lookup(path, testEntry.Host)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Apply(path, testEntry))

	ip, ok, err := Lookup(path, testEntry.Host)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testEntry.IP, ip)
}

func TestMapsHost(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		line    string
		matches bool
	}{
		{"127.0.0.1 gosredirector.ea.com", true},
		{"  127.0.0.1\tGOSREDIRECTOR.EA.COM  ", true},
		{"10.0.0.1 alias.example.com gosredirector.ea.com", true},
		{"127.0.0.1 gosredirector.ea.com # managed", true},
		{"", false},
		{"# 127.0.0.1 gosredirector.ea.com", false},
		{"127.0.0.1 other.example.com", false},
		{"127.0.0.1 other.example.com # gosredirector.ea.com", false},
		{"gosredirector.ea.com", false},
	} {
		assert.Equalf(t, tc.matches, mapsHost(tc.line, testEntry.Host), "line: %q", tc.line)
	}
}
