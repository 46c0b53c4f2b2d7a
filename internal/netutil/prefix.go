package netutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/giantswarm/ccmenv/internal/sentinel"
)

// procNetTCP is the kernel's table of IPv4 TCP sockets. Each row's
// second field is the local endpoint as little-endian hex, e.g.
// "0100007F:0016" for 127.0.0.1:22.
const procNetTCP = "/proc/net/tcp"

// ErrNoAvailablePrefix is returned when every candidate 127.a.b.
// prefix is already bound on the host. With 65025 candidates this is
// practically unreachable, but it is a defined outcome, not a panic.
const ErrNoAvailablePrefix = sentinel.Error("no unused loopback /24 prefix available")

// PickUnusedPrefix proposes a loopback /24 prefix with no currently
// bound endpoint, formatted with a trailing separator ("127.a.b.").
// Candidates are scanned in ascending (a, b) order over 1..255 each;
// 127.0.0.0/24 is left to normal loopback use.
//
// The bound-endpoint table is a point-in-time snapshot: nothing stops
// another process from picking the same prefix concurrently. Callers
// accept that window.
func PickUnusedPrefix() (string, error) {
	f, err := os.Open(procNetTCP)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", procNetTCP, err)
	}
	defer func() { _ = f.Close() }()

	used, err := usedPrefixes(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", procNetTCP, err)
	}
	return pickFrom(used)
}

// pickFrom returns the first candidate prefix absent from used.
func pickFrom(used map[string]struct{}) (string, error) {
	for a := 1; a <= 255; a++ {
		for b := 1; b <= 255; b++ {
			prefix := fmt.Sprintf("127.%d.%d.", a, b)
			if _, taken := used[prefix]; !taken {
				return prefix, nil
			}
		}
	}
	return "", ErrNoAvailablePrefix
}

// usedPrefixes collects the /24 prefixes ("a.b.c.") of every local
// endpoint in a /proc/net/tcp-format table. Rows that do not parse are
// skipped; the kernel writes the table, so a malformed row is noise,
// not an error.
func usedPrefixes(r io.Reader) (map[string]struct{}, error) {
	used := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		if first {
			// Header row.
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		if prefix, ok := localPrefix(fields[1]); ok {
			used[prefix] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return used, nil
}

// localPrefix decodes a little-endian hex local endpoint
// ("0100007F:0016") into its /24 prefix ("127.0.0.").
func localPrefix(endpoint string) (string, bool) {
	addr, _, ok := strings.Cut(endpoint, ":")
	if !ok {
		return "", false
	}
	ip, err := strconv.ParseUint(addr, 16, 32)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%d.%d.%d.", ip&0xFF, (ip>>8)&0xFF, (ip>>16)&0xFF), true
}
