package supervise

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Role names the kind of process being supervised.
type Role string

const (
	RoleLeader    Role = "leader"
	RoleValidator Role = "validator"
	RoleDrone     Role = "drone"
	RoleClient    Role = "client"
)

// oomScoreAdj shifts the child toward more-likely-to-be-killed under
// memory pressure. Node processes are expendable, restartable
// infrastructure, not protected services.
const oomScoreAdj = 300

// killGrace bounds how long a terminated child gets to exit before it is
// killed outright.
const killGrace = 10 * time.Second

// Precondition is a file that must exist before the child is spawned,
// with the setup step that produces it. Failing before the spawn gives
// the operator an actionable message instead of whatever the node binary
// would print about a missing file.
type Precondition struct {
	Path   string
	Remedy string
}

// Spec describes the single child process a Supervisor manages.
type Spec struct {
	Role          Role
	Binary        string
	Args          []string
	Preconditions []Precondition
}

// ManagedProcess records the launched child.
type ManagedProcess struct {
	PID       int
	StartedAt time.Time
	Role      Role
}

// Supervisor launches exactly one external executable as a child,
// supervises it until exit and guarantees cleanup: no orphaned child
// survives the supervisor's own termination.
type Supervisor struct {
	logger *logrus.Entry

	mu   sync.Mutex
	proc *ManagedProcess
}

// New returns a Supervisor logging through logger.
func New(logger *logrus.Entry) *Supervisor {
	return &Supervisor{logger: logger}
}

// Process returns the managed child, or nil before launch. It is safe to
// call while Run is in flight.
func (s *Supervisor) Process() *ManagedProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}

func (s *Supervisor) setProcess(proc *ManagedProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = proc
}

// CheckPreconditions verifies every required file exists. It is also run
// by Run, but callers may invoke it earlier to fail before any setup
// side effects.
func CheckPreconditions(pres []Precondition) error {
	for _, pre := range pres {
		if _, err := os.Stat(pre.Path); err != nil {
			return fmt.Errorf("%s not found; run %q first", pre.Path, pre.Remedy)
		}
	}
	return nil
}

// Run launches the child and blocks until it exits, naturally or through
// signal forwarding. The returned int is the supervisor's own exit
// status: the child's exit code when it exits on its own, 0 on
// signal-driven shutdown. An error is returned only for launch failures;
// a non-zero child exit is not an error.
func (s *Supervisor) Run(ctx context.Context, spec Spec) (int, error) {
	if err := CheckPreconditions(spec.Preconditions); err != nil {
		return 1, err
	}

	cmd := exec.Command(spec.Binary, spec.Args...)

	// Child output goes through the logging pipe, never raw to the
	// terminal.
	stdout := s.logger.WithField("prefix", string(spec.Role)).WriterLevel(logrus.InfoLevel)
	stderr := s.logger.WithField("prefix", string(spec.Role)).WriterLevel(logrus.ErrorLevel)
	defer stdout.Close()
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Trap signals before the child exists, so there is no window in
	// which a signal can arrive with nothing to forward it to.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("starting %s: %w", spec.Binary, err)
	}

	s.setProcess(&ManagedProcess{
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		Role:      spec.Role,
	})

	s.logger.WithFields(logrus.Fields{
		"role":   spec.Role,
		"binary": spec.Binary,
		"pid":    cmd.Process.Pid,
	}).Info("child started")

	s.adjustOOMScore(cmd.Process.Pid)

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	select {
	case sig := <-sigCh:
		s.logger.WithField("signal", sig).Info("forwarding termination to child")
		s.terminate(cmd, waitCh)
		return 0, nil

	case <-ctx.Done():
		s.terminate(cmd, waitCh)
		return 0, nil

	case err := <-waitCh:
		code := exitCode(err)
		s.logger.WithFields(logrus.Fields{
			"pid":  cmd.Process.Pid,
			"code": code,
		}).Info("child exited")
		return code, nil
	}
}

// terminate signals the child and blocks until it has fully exited,
// killing it outright if it outlives the grace period.
func (s *Supervisor) terminate(cmd *exec.Cmd, waitCh <-chan error) {
	cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-waitCh:
	case <-time.After(killGrace):
		s.logger.WithField("pid", cmd.Process.Pid).Warn("child ignored SIGTERM, killing")
		cmd.Process.Kill()
		<-waitCh
	}
}

func (s *Supervisor) adjustOOMScore(pid int) {
	if runtime.GOOS != "linux" {
		return
	}

	path := "/proc/" + strconv.Itoa(pid) + "/oom_score_adj"
	if err := os.WriteFile(path, []byte(strconv.Itoa(oomScoreAdj)), 0644); err != nil {
		s.logger.WithField("pid", pid).Warn("cannot adjust oom score: ", err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exit, ok := err.(*exec.ExitError); ok {
		return exit.ExitCode()
	}
	return 1
}
