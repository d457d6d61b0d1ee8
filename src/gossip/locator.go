package gossip

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
)

// hostPattern matches hostnames and dotted IPv4 addresses. It is loose on
// purpose; the point is to reject tokens that are clearly flags or
// pass-through arguments, not to re-implement DNS.
var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9.-]*[a-zA-Z0-9])?$`)

// ResolvedLeader is the outcome of entry-point resolution: where to reach
// the leader, and where to pull its published configuration from.
type ResolvedLeader struct {
	// Addr is the leader's host:port gossip address.
	Addr string

	// ConfigURL is the rsync URL of the leader's published config tree.
	ConfigURL string
}

// Resolve turns leading positional arguments into a ResolvedLeader and
// returns the arguments it did not consume, so callers can forward them
// verbatim.
//
// Accepted forms:
//
//	(nothing)     single-node mode, localhost leader
//	host[:port]   port defaults to defaultPort when omitted
//	host port     legacy split form; the second token is only consumed
//	              when it parses as a port
func Resolve(args []string, defaultPort int) (*ResolvedLeader, []string, error) {
	if len(args) == 0 {
		return leader("localhost", defaultPort), args, nil
	}

	host := args[0]
	port := defaultPort
	consumed := 1

	if h, p, err := net.SplitHostPort(args[0]); err == nil {
		n, err := parsePort(p)
		if err != nil {
			return nil, nil, fmt.Errorf("entry point %q: %w", args[0], err)
		}
		host = h
		port = n
	} else if len(args) > 1 {
		// Legacy split form. A second token that is not a port belongs
		// to the caller's pass-through tail and must not be consumed.
		if n, err := parsePort(args[1]); err == nil {
			port = n
			consumed = 2
		}
	}

	if !hostPattern.MatchString(host) {
		return nil, nil, fmt.Errorf("entry point %q: invalid host", host)
	}

	return leader(host, port), args[consumed:], nil
}

func leader(host string, port int) *ResolvedLeader {
	return &ResolvedLeader{
		Addr:      net.JoinHostPort(host, strconv.Itoa(port)),
		ConfigURL: fmt.Sprintf("rsync://%s/config", host),
	}
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return n, nil
}
