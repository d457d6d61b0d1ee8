package metrics

import (
	"github.com/sirupsen/logrus"
)

// sink is the slice of the Reporter the hook needs.
type sink interface {
	Submit(measurement string, tags map[string]string, fields map[string]interface{})
	Flush()
}

// PanicHook submits a "panic" datapoint when the logger records a panic-
// or fatal-level entry, then flushes so the point is written before the
// process dies. A crash is visible in metrics, not only in the log.
type PanicHook struct {
	rec     sink
	program string
}

// NewPanicHook returns a PanicHook reporting on behalf of program.
func NewPanicHook(r *Reporter, program string) *PanicHook {
	return &PanicHook{
		rec:     r,
		program: program,
	}
}

// Levels implements logrus.Hook.
func (h *PanicHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel}
}

// Fire implements logrus.Hook.
func (h *PanicHook) Fire(entry *logrus.Entry) error {
	h.rec.Submit("panic",
		map[string]string{"program": h.program},
		map[string]interface{}{"message": entry.Message},
	)
	h.rec.Flush()
	return nil
}
