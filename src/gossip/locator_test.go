package gossip

import (
	"reflect"
	"testing"

	"github.com/hypercube-lab/hypercube/src/config"
)

func TestResolveNoArgs(t *testing.T) {
	res, rest, err := Resolve(nil, config.DefaultGossipPort)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Addr != "localhost:8001" {
		t.Fatalf("Addr: %s", res.Addr)
	}
	if res.ConfigURL != "rsync://localhost/config" {
		t.Fatalf("ConfigURL: %s", res.ConfigURL)
	}
	if len(rest) != 0 {
		t.Fatalf("rest: %v", rest)
	}
}

func TestResolveDefaultPort(t *testing.T) {
	res, rest, err := Resolve([]string{"10.0.0.5"}, config.DefaultGossipPort)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Addr != "10.0.0.5:8001" {
		t.Fatalf("Addr: %s", res.Addr)
	}
	if len(rest) != 0 {
		t.Fatalf("should have consumed exactly one arg, rest: %v", rest)
	}
}

func TestResolveForms(t *testing.T) {
	tests := []struct {
		args []string
		addr string
		url  string
		rest []string
	}{
		{[]string{"leader.test:9001"}, "leader.test:9001", "rsync://leader.test/config", []string{}},
		{[]string{"leader.test", "9001"}, "leader.test:9001", "rsync://leader.test/config", []string{}},
		{[]string{"leader.test", "9001", "extra"}, "leader.test:9001", "rsync://leader.test/config", []string{"extra"}},
		{[]string{"10.0.0.5", "--threads"}, "10.0.0.5:8001", "rsync://10.0.0.5/config", []string{"--threads"}},
		{[]string{"10.0.0.5", "extra1", "extra2"}, "10.0.0.5:8001", "rsync://10.0.0.5/config", []string{"extra1", "extra2"}},
	}

	for _, tt := range tests {
		res, rest, err := Resolve(tt.args, config.DefaultGossipPort)
		if err != nil {
			t.Fatalf("Resolve(%v): %v", tt.args, err)
		}
		if res.Addr != tt.addr {
			t.Fatalf("Resolve(%v) Addr: got %s, want %s", tt.args, res.Addr, tt.addr)
		}
		if res.ConfigURL != tt.url {
			t.Fatalf("Resolve(%v) ConfigURL: got %s, want %s", tt.args, res.ConfigURL, tt.url)
		}
		if !reflect.DeepEqual(rest, tt.rest) {
			t.Fatalf("Resolve(%v) rest: got %v, want %v", tt.args, rest, tt.rest)
		}
	}
}

func TestResolveInvalid(t *testing.T) {
	bad := [][]string{
		{":8001"},
		{"-leader"},
		{"host:notaport"},
		{"host:99999"},
	}

	for _, args := range bad {
		if _, _, err := Resolve(args, config.DefaultGossipPort); err == nil {
			t.Fatalf("Resolve(%v) should have failed", args)
		}
	}
}
