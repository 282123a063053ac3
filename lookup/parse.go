// Package lookup parses connection strings, resolves them and looks up the
// server behind them.
package lookup

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// Parse errors.
var (
	ErrEmptyTarget   = errors.New("connection string is empty")
	ErrInvalidHost   = errors.New("connection string has an invalid host")
	ErrInvalidScheme = errors.New("connection string has an unsupported scheme")
)

// Address is a parsed connection string.
type Address struct {
	// Scheme is http or https.
	Scheme string
	// Host is the cleaned domain name or the IP address as given.
	Host string
	// Port is the server port, derived from the scheme when omitted.
	Port uint16
}

// BaseURL returns the server base URL with a trailing slash.
func (a *Address) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d/", a.Scheme, a.Host, a.Port)
}

// String returns the address in host:port form.
func (a *Address) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

var domainRegex = regexp.MustCompile(
	`^` + // match beginning
		`(` + // start subdomain group
		`(xn--)?` + // idn prefix
		`[a-z0-9_-]{1,63}` + // main chunk
		`\.` + // ending with a dot
		`)*` + // end subdomain group, allow any number of subdomains
		`(xn--)?` + // TLD idn prefix
		`[a-z-][a-z0-9_-]{0,62}` + // TLD main chunk, not purely numeric
		`$`, // match end
)

// ParseAddress parses a user supplied connection string.
// It accepts a bare IP address or domain name, either with an optional
// port, as well as full http(s) URLs. No I/O happens here: a connection
// string that does not parse is rejected before anything else is touched.
func ParseAddress(definition string) (*Address, error) {
	definition = strings.TrimSpace(definition)
	if definition == "" {
		return nil, ErrEmptyTarget
	}

	// Fill in the missing scheme, the original input is just host[:port].
	if !strings.Contains(definition, "://") {
		definition = "http://" + definition
	}

	u, err := url.Parse(definition)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHost, err)
	}

	// Check for invalid parts.
	if u.User != nil {
		return nil, errors.New("user/pass is not allowed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScheme, u.Scheme)
	}

	a := &Address{
		Scheme: u.Scheme,
	}

	// Parse port, falling back to the scheme default.
	switch portData := u.Port(); {
	case portData == "" && strings.HasSuffix(u.Host, ":"):
		return nil, errors.New("invalid port: empty")
	case portData != "":
		port, err := strconv.ParseUint(portData, 10, 16)
		if err != nil || port == 0 {
			return nil, fmt.Errorf("invalid port %q", portData)
		}
		a.Port = uint16(port)
	case a.Scheme == "https":
		a.Port = 443
	default:
		a.Port = 80
	}

	// Check the host portion.
	host := u.Hostname()
	if host == "" {
		return nil, ErrInvalidHost
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		a.Host = ip.String()
		return a, nil
	}
	cleaned, ok := cleanDomain(host)
	if !ok {
		return nil, fmt.Errorf("%w: %q is neither an IP address nor a valid domain", ErrInvalidHost, host)
	}
	a.Host = cleaned

	return a, nil
}

// cleanDomain cleans the given domain and also returns if it is valid.
func cleanDomain(domain string) (cleaned string, valid bool) {
	// Clean domain.
	domain = strings.ToLower(domain)
	domain = strings.TrimSuffix(domain, ".")

	// Check max length.
	if len(domain) > 256 {
		return domain, false
	}

	// Check domain with regex.
	if !domainRegex.MatchString(domain) {
		// Check if this is an IDN domain.
		punyDomain, err := idna.ToASCII(domain)
		if err == nil && domainRegex.MatchString(punyDomain) {
			domain = punyDomain
		} else {
			return domain, false
		}
	}

	return domain, true
}
