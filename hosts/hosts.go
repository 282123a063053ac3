// Package hosts manages the single redirect entry the client owns in the
// system hosts file.
package hosts

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
)

// Errors.
var (
	// ErrFileMissing means the hosts file does not exist at all.
	ErrFileMissing = errors.New("hosts file is missing")

	// ErrPermission means the process may not modify the hosts file.
	ErrPermission = errors.New(
		"missing permission to modify the hosts file - " + permissionRemedy,
	)
)

// Entry is a single hostname mapping in the hosts file.
type Entry struct {
	IP   netip.Addr
	Host string
}

// String returns the entry as a hosts file line.
func (e Entry) String() string {
	return e.IP.String() + " " + e.Host
}

// Apply rewrites the hosts file so that it contains exactly one mapping for
// the entry hostname. All lines not mapping that hostname are written back
// unchanged. The new content is built in memory and written in a single
// write, so a failed read leaves the file untouched.
func Apply(path string, entry Entry) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	output := append(withoutHost(lines, entry.Host), entry.String())
	return writeLines(path, output)
}

// Remove rewrites the hosts file without any mapping for the given hostname.
// All other lines are written back unchanged.
func Remove(path string, host string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	return writeLines(path, withoutHost(lines, host))
}

// Lookup returns the mapped address for the given hostname, if the hosts
// file currently holds a mapping for it.
func Lookup(path string, host string) (ip netip.Addr, ok bool, err error) {
	lines, err := readLines(path)
	if err != nil {
		return netip.Addr{}, false, err
	}

	for _, line := range lines {
		if !mapsHost(line, host) {
			continue
		}
		fields := strings.Fields(stripComment(line))
		ip, err := netip.ParseAddr(fields[0])
		if err != nil {
			return netip.Addr{}, false, fmt.Errorf("mapping for %s has invalid address: %w", host, err)
		}
		return ip, true, nil
	}
	return netip.Addr{}, false, nil
}

// withoutHost returns the lines with every mapping for the given hostname
// removed. Lines mapping additional hostnames are rewritten without the
// given one instead of being dropped.
func withoutHost(lines []string, host string) []string {
	output := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if !mapsHost(line, host) {
			output = append(output, line)
			continue
		}
		if rebuilt, keep := stripHost(line, host); keep {
			output = append(output, rebuilt)
		}
	}
	return output
}

// stripHost removes the given hostname from a mapping line. It returns the
// rewritten line and whether the line still maps any hostname.
func stripHost(line string, host string) (string, bool) {
	fields := strings.Fields(stripComment(strings.TrimSpace(line)))

	kept := make([]string, 0, len(fields))
	kept = append(kept, fields[0])
	for _, name := range fields[1:] {
		if !strings.EqualFold(name, host) {
			kept = append(kept, name)
		}
	}
	if len(kept) < 2 {
		return "", false
	}

	rebuilt := strings.Join(kept, " ")
	if _, comment, found := strings.Cut(line, "#"); found {
		rebuilt += " #" + comment
	}
	return rebuilt, true
}

// mapsHost reports whether the given hosts file line is a mapping for the
// given hostname. Comments, blank lines and mappings of other hostnames
// do not match.
func mapsHost(line string, host string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}

	// Cut a trailing comment before looking at the fields.
	trimmed = stripComment(trimmed)

	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return false
	}

	// A line may map multiple hostnames to one address.
	for _, name := range fields[1:] {
		if strings.EqualFold(name, host) {
			return true
		}
	}
	return false
}

func stripComment(line string) string {
	if before, _, found := strings.Cut(line, "#"); found {
		return strings.TrimSpace(before)
	}
	return line
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, convertErr(err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(content, "\n")

	// A trailing newline produces one empty trailing element.
	// Drop it so writing does not grow the file by one line per run.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	builder := strings.Builder{}
	for _, line := range lines {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(builder.String()), 0o0644); err != nil { //nolint:gosec // world readable by convention
		return convertErr(err)
	}
	return nil
}

func convertErr(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrFileMissing
	case errors.Is(err, os.ErrPermission):
		return ErrPermission
	default:
		return err
	}
}
