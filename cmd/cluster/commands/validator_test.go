package commands

import (
	"testing"

	"github.com/hypercube-lab/hypercube/src/config"
	"github.com/hypercube-lab/hypercube/src/provision"
	"github.com/hypercube-lab/hypercube/src/supervise"
)

func hasPrecondition(spec supervise.Spec, path string) bool {
	for _, pre := range spec.Preconditions {
		if pre.Path == path {
			return true
		}
	}
	return false
}

func TestValidatorSpecPreProvisioned(t *testing.T) {
	conf := config.NewDefaultConfig()
	conf.SetConfigDir(t.TempDir())

	spec := validatorSpec(conf, "10.0.0.5:8001", nil)

	if spec.Role != supervise.RoleValidator {
		t.Fatalf("role: %s", spec.Role)
	}
	if spec.Binary != config.FullnodeBin {
		t.Fatalf("binary: %s", spec.Binary)
	}
	if !hasPrecondition(spec, conf.ValidatorKeyfile()) {
		t.Fatalf("missing keyfile precondition: %v", spec.Preconditions)
	}
	// The leader's published descriptor arrives with the config sync and
	// must exist before the node is spawned.
	if !hasPrecondition(spec, config.LeaderConfig(conf.ValidatorDir)) {
		t.Fatalf("missing leader descriptor precondition: %v", spec.Preconditions)
	}
}

func TestValidatorSpecSelfConfigured(t *testing.T) {
	conf := config.NewDefaultConfig()
	conf.SetConfigDir(t.TempDir())
	conf.CUDA = true

	prov := &provision.Provisioned{
		Keyfile:    "/p/validator-id-42.json",
		NodeConfig: "/p/validator-42.json",
		Port:       9042,
	}

	spec := validatorSpec(conf, "10.0.0.5:8001", prov)

	if spec.Binary != config.FullnodeCudaBin {
		t.Fatalf("binary: %s", spec.Binary)
	}
	if hasPrecondition(spec, conf.ValidatorKeyfile()) {
		t.Fatalf("self-configured validator should not require the shared keyfile")
	}
	if !hasPrecondition(spec, config.LeaderConfig(conf.ValidatorDir)) {
		t.Fatalf("missing leader descriptor precondition: %v", spec.Preconditions)
	}

	wantArgs := []string{
		"--identity", prov.Keyfile,
		"--config", prov.NodeConfig,
		"--ledger", config.LedgerDir(conf.ValidatorDir),
		"--leader", "10.0.0.5:8001",
	}
	if len(spec.Args) != len(wantArgs) {
		t.Fatalf("args: %v", spec.Args)
	}
	for i := range wantArgs {
		if spec.Args[i] != wantArgs[i] {
			t.Fatalf("arg %d: got %s, want %s", i, spec.Args[i], wantArgs[i])
		}
	}
}
