package provision

import (
	"fmt"
	"net"
	"strconv"
)

// AllocPort derives a network port from a process id. Concurrent
// self-configured validators on one host get distinct pids, hence
// distinct ports with overwhelming probability. The reserved base port
// itself is never returned: a pid landing on it exactly is shifted up by
// one. The derivation is deterministic, so re-running with the same pid
// and base yields the same port.
func AllocPort(pid, base, rng int) int {
	port := base + pid%rng
	if port == base {
		port++
	}
	return port
}

// BindPort turns the arithmetic derivation into an actual reservation.
// Starting from AllocPort's value it walks the range, bind-testing each
// candidate, and returns the first port that accepts a listener. This
// covers the case arithmetic cannot: another validator already claimed
// the derived port.
func BindPort(pid, base, rng, attempts int) (int, error) {
	start := AllocPort(pid, base, rng) - base

	for i := 0; i < attempts; i++ {
		port := base + (start+i)%rng
		if port == base {
			continue
		}

		l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
		if err != nil {
			continue
		}
		l.Close()

		return port, nil
	}

	return 0, fmt.Errorf("no free port in [%d, %d) after %d attempts", base, base+rng, attempts)
}
