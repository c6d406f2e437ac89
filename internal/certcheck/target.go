package certcheck

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

// DefaultPort is used when a target has no explicit port
const DefaultPort = 443

// ParseTarget splits "host[:port]" and strips an http(s):// prefix and any path
func ParseTarget(raw string) (string, int, error) {
	t := strings.TrimSpace(raw)
	t = strings.TrimPrefix(t, "https://")
	t = strings.TrimPrefix(t, "http://")
	if i := strings.IndexByte(t, '/'); i >= 0 {
		t = t[:i]
	}
	if t == "" {
		return "", 0, nberrors.Validation("empty target")
	}

	host, portStr, err := net.SplitHostPort(t)
	if err != nil {
		// no port, or a bare IPv6 address
		return strings.Trim(t, "[]"), DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, nberrors.Validation("invalid port in target " + raw)
	}
	if host == "" {
		return "", 0, nberrors.Validation("missing host in target " + raw)
	}
	return host, port, nil
}

// LoadDomains reads one target per line; blank lines and # comments are skipped
func LoadDomains(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeConfig, "cannot read domains file", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeConfig, "cannot read domains file", err)
	}
	return targets, nil
}
