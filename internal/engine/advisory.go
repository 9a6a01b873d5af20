package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task-volume thresholds above which the scheduler warns. Many tasks per
// edit usually point at an overly broad linter assignment.
const (
	warnTotalTasks  = 4
	warnTasksPerJob = 3
)

// advisoryMemory bounds the dedup table; repeated identical warnings are
// suppressed while the message is still remembered.
const advisoryMemory = 4

// advisoryLog emits rate-limited warnings, deduplicated by exact message
// text so repeated relints do not flood the log.
type advisoryLog struct {
	log logrus.FieldLogger

	mu     sync.Mutex
	recent []string
}

func newAdvisoryLog(log logrus.FieldLogger) *advisoryLog {
	return &advisoryLog{log: log}
}

func (a *advisoryLog) warn(msg string) {
	a.mu.Lock()
	for _, m := range a.recent {
		if m == msg {
			a.mu.Unlock()
			return
		}
	}
	a.recent = append(a.recent, msg)
	if len(a.recent) > advisoryMemory {
		a.recent = a.recent[len(a.recent)-advisoryMemory:]
	}
	a.mu.Unlock()

	a.log.Warn(msg)
}

// warnExcessiveTasks checks the per-burst and per-job task volume against
// the thresholds.
func (e *Engine) warnExcessiveTasks(doc Document, jobs []*job) {
	total := 0
	for _, jb := range jobs {
		total += len(jb.tasks)
	}

	if total > warnTotalTasks {
		details := make([]string, 0, len(jobs))
		for _, jb := range jobs {
			details = append(details, fmt.Sprintf("%dx %s", len(jb.tasks), jb.name))
		}
		e.advisory.warn(fmt.Sprintf(
			"'%s' puts in total %d(!) tasks on the queue:  %s.",
			doc.ShortName(), total, strings.Join(details, ", ")))
		return
	}

	for _, jb := range jobs {
		if len(jb.tasks) > warnTasksPerJob {
			e.advisory.warn(fmt.Sprintf(
				"'%s' puts %d %s tasks on the queue.",
				doc.ShortName(), len(jb.tasks), jb.name))
		}
	}
}
