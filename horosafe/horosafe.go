// CLAUDE:SUMMARY URL and path safety checks for capture targets, webhook endpoints and sink files.
// Package horosafe guards the places where canvascap touches caller-supplied
// input: the page URL handed to the browser, webhook endpoints, file names
// under a sink directory, and response bodies read back from remote peers.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// MaxErrorBody caps how much of a failing peer response is read back for logs.
const MaxErrorBody int64 = 4 << 10

var (
	// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
	ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")

	// ErrPrivateAddress is returned when a URL targets a private or loopback address.
	ErrPrivateAddress = errors.New("horosafe: URL targets a private or loopback address")

	// ErrPathTraversal is returned when a name escapes its base directory.
	ErrPathTraversal = errors.New("horosafe: path traversal detected")
)

// CheckURL parses rawURL and requires an http(s) scheme and a host.
func CheckURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsafeScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: URL has no host", ErrUnsafeScheme)
	}
	return u, nil
}

// ValidateURL runs CheckURL and, when allowPrivate is false, rejects hosts
// that are or resolve to private, loopback or link-local addresses.
// Unresolvable hosts pass: navigation fails on them anyway.
func ValidateURL(rawURL string, allowPrivate bool) error {
	u, err := CheckURL(rawURL)
	if err != nil {
		return err
	}
	if allowPrivate {
		return nil
	}

	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
		}
		return nil
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, host, a)
		}
	}
	return nil
}

// SafePath joins name under base and rejects names that would leave it.
func SafePath(base, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	cleaned := filepath.Join(base, name)
	if filepath.Dir(cleaned) != filepath.Clean(base) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return cleaned, nil
}

// Snippet reads at most max bytes from r for diagnostics. A longer body is
// truncated, not rejected.
func Snippet(r io.Reader, max int64) string {
	data, err := io.ReadAll(io.LimitReader(r, max))
	if err != nil && len(data) == 0 {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
