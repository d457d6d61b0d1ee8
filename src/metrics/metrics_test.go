package metrics

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hypercube-lab/hypercube/src/common"
	"github.com/hypercube-lab/hypercube/src/config"
)

func newTestReporter(t *testing.T) *Reporter {
	conf := config.NewDefaultConfig()
	conf.MetricsRate = 50 * time.Millisecond

	r, err := NewReporter(conf, common.NewTestEntry(t, logrus.DebugLevel))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return r
}

func TestSubmitWithoutEndpoint(t *testing.T) {
	r := newTestReporter(t)
	defer r.Close()

	// No endpoint configured: points degrade to log lines and Submit
	// must never block.
	for i := 0; i < 3*maxBatch; i++ {
		r.Submit("bench-begin", nil, map[string]interface{}{"iteration": i})
	}

	r.Flush()
}

type stubSink struct {
	measurements []string
	tags         []map[string]string
	flushes      int
}

func (s *stubSink) Submit(measurement string, tags map[string]string, fields map[string]interface{}) {
	s.measurements = append(s.measurements, measurement)
	s.tags = append(s.tags, tags)
}

func (s *stubSink) Flush() {
	s.flushes++
}

func TestPanicHookSubmitsDatapoint(t *testing.T) {
	stub := &stubSink{}
	hook := &PanicHook{rec: stub, program: "bench"}

	logger := common.NewTestLogger(t, logrus.DebugLevel)
	logger.Hooks.Add(hook)

	func() {
		defer func() { recover() }()
		logger.Panic("boom")
	}()

	if len(stub.measurements) != 1 || stub.measurements[0] != "panic" {
		t.Fatalf("measurements: %v", stub.measurements)
	}
	if stub.tags[0]["program"] != "bench" {
		t.Fatalf("tags: %v", stub.tags[0])
	}
	if stub.flushes != 1 {
		t.Fatalf("flushes: %d", stub.flushes)
	}
}

func TestPanicHookLevels(t *testing.T) {
	r := newTestReporter(t)
	defer r.Close()

	hook := NewPanicHook(r, "bench")

	levels := hook.Levels()
	if len(levels) != 2 {
		t.Fatalf("levels: %v", levels)
	}
	for _, l := range levels {
		if l != logrus.PanicLevel && l != logrus.FatalLevel {
			t.Fatalf("unexpected level: %v", l)
		}
	}
}

func TestFlushAfterClose(t *testing.T) {
	r := newTestReporter(t)
	r.Close()

	done := make(chan struct{})
	go func() {
		r.Flush()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Flush blocked after Close")
	}
}
