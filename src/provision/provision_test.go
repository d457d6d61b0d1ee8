package provision

import (
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hypercube-lab/hypercube/src/config"
)

func TestAllocPortVectors(t *testing.T) {
	base := 9000
	rng := 1000

	if port := AllocPort(1234, base, rng); port != 9234 {
		t.Fatalf("pid 1234: %d", port)
	}
	if port := AllocPort(1235, base, rng); port != 9235 {
		t.Fatalf("pid 1235: %d", port)
	}
}

func TestAllocPortNeverBase(t *testing.T) {
	base := config.DefaultBasePort
	rng := config.DefaultPortRange

	for pid := 0; pid < 5000; pid++ {
		if port := AllocPort(pid, base, rng); port == base {
			t.Fatalf("pid %d landed on reserved base port", pid)
		}
	}
}

func TestAllocPortIdempotent(t *testing.T) {
	for _, pid := range []int{0, 1, 999, 1000, 4321} {
		a := AllocPort(pid, 9000, 1000)
		b := AllocPort(pid, 9000, 1000)
		if a != b {
			t.Fatalf("pid %d: %d != %d", pid, a, b)
		}
	}
}

func TestDistinctPidsDistinctResources(t *testing.T) {
	dir := t.TempDir()

	ports := map[int]int{}
	paths := map[string]int{}

	// Residues 1..999: the one pid whose residue is 0 re-rolls onto
	// base+1, which is a documented gap, not a guarantee.
	for pid := 1001; pid < 2000; pid++ {
		port := AllocPort(pid, 9000, 1000)
		if prev, ok := ports[port]; ok {
			t.Fatalf("pids %d and %d collide on port %d", prev, pid, port)
		}
		ports[port] = pid

		p := IdentityPath(dir, pid)
		if prev, ok := paths[p]; ok {
			t.Fatalf("pids %d and %d collide on path %s", prev, pid, p)
		}
		paths[p] = pid
	}
}

func TestBindPortSkipsClaimed(t *testing.T) {
	derived := AllocPort(1234, 9000, 1000)

	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(derived)))
	if err != nil {
		t.Skipf("cannot claim port %d: %v", derived, err)
	}
	defer l.Close()

	port, err := BindPort(1234, 9000, 1000, 32)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if port == derived {
		t.Fatalf("already-claimed port was handed out")
	}
	if port == 9000 {
		t.Fatalf("reserved base port was handed out")
	}
	if port < 9000 || port >= 10000 {
		t.Fatalf("port out of range: %d", port)
	}
}

func TestGenKeypairFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")

	if err := GenKeypairFile(path); err != nil {
		t.Fatalf("err: %v", err)
	}

	key, err := ReadKeypairFile(path)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(key) != 64 {
		t.Fatalf("key length: %d", len(key))
	}

	// One-shot: a second generation must refuse to overwrite.
	if err := GenKeypairFile(path); err == nil {
		t.Fatalf("regeneration should have been refused")
	}
}
