package harness

import (
	"fmt"
	"os/exec"

	"github.com/hypercube-lab/hypercube/src/config"
)

// Tmux wraps the terminal multiplexer the harness detaches into, so the
// loop survives the invoking shell's disconnection and its recent output
// stays inspectable with `tmux attach`.
type Tmux struct {
	bin     string
	session string
}

// NewTmux returns a Tmux using the binary and session name from conf.
func NewTmux(conf *config.Config) *Tmux {
	return &Tmux{
		bin:     conf.Bin(config.TmuxBin),
		session: conf.TmuxSession,
	}
}

// Session returns the session name.
func (t *Tmux) Session() string {
	return t.session
}

// Spawn starts argv inside a new detached session. It returns once the
// session exists; the command keeps running without a controlling
// terminal.
func (t *Tmux) Spawn(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("tmux: empty command")
	}

	args := append([]string{"new-session", "-d", "-s", t.session}, argv...)

	out, err := exec.Command(t.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux new-session: %v: %s", err, out)
	}

	return nil
}
