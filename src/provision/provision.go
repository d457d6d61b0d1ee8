package provision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/hypercube-lab/hypercube/src/config"
)

// bindAttempts bounds the scan of the port range before giving up.
const bindAttempts = 32

// Provisioned describes a freshly self-configured validator: where its
// identity and node descriptor live, and the port it was allocated. The
// descriptor is on disk, not only in memory, so the supervisor can
// reference it after provisioning returns.
type Provisioned struct {
	Keyfile    string
	NodeConfig string
	Port       int
}

// Provisioner produces an identity and node descriptor for a
// self-configuring validator, without operator intervention. It is
// one-shot: any failure is fatal and surfaced immediately, never retried.
type Provisioner struct {
	conf   *config.Config
	logger *logrus.Entry
	pid    int
}

// New returns a Provisioner namespaced by the current process id, so
// concurrent validators sharing a config directory never clobber each
// other's files.
func New(conf *config.Config, logger *logrus.Entry) *Provisioner {
	return &Provisioner{
		conf:   conf,
		logger: logger,
		pid:    os.Getpid(),
	}
}

// IdentityPath returns the pid-namespaced identity file path under dir.
func IdentityPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf("validator-id-%d.json", pid))
}

// NodeConfigPath returns the pid-namespaced node descriptor path under
// dir.
func NodeConfigPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf("validator-%d.json", pid))
}

// Provision generates a keypair, reserves a port and invokes the external
// node-config generator, capturing its output as the node descriptor.
func (p *Provisioner) Provision(ctx context.Context) (*Provisioned, error) {
	keyfile := IdentityPath(p.conf.PrivateDir, p.pid)

	if err := GenKeypairFile(keyfile); err != nil {
		return nil, fmt.Errorf("provisioning identity: %w", err)
	}

	port, err := BindPort(p.pid, p.conf.BasePort, p.conf.PortRange, bindAttempts)
	if err != nil {
		return nil, fmt.Errorf("provisioning port: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"keyfile": keyfile,
		"port":    port,
	}).Info("provisioned validator identity")

	nodeConfig := NodeConfigPath(p.conf.PrivateDir, p.pid)
	if err := p.generateNodeConfig(ctx, keyfile, port, nodeConfig); err != nil {
		return nil, err
	}

	return &Provisioned{
		Keyfile:    keyfile,
		NodeConfig: nodeConfig,
		Port:       port,
	}, nil
}

func (p *Provisioner) generateNodeConfig(ctx context.Context, keyfile string, port int, dest string) error {
	bin := p.conf.Bin(config.FullnodeConfigBin)

	cmd := exec.CommandContext(ctx, bin,
		"--keypair", keyfile,
		"--role", "validator",
		"--port", strconv.Itoa(port),
	)

	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("%s: %w", bin, err)
	}

	if err := os.WriteFile(dest, out, 0600); err != nil {
		return fmt.Errorf("writing node config: %w", err)
	}

	return nil
}
