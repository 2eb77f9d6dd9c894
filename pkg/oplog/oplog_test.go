package oplog_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sousbot/sousbot/pkg/oplog"
	"github.com/sousbot/sousbot/pkg/types"
)

func TestLogFormat(t *testing.T) {
	l := oplog.New()
	l.Begin(101, "Phở bò")
	l.Task("add broth", true, 2500*time.Millisecond)
	l.Task("garnish (2/3)", false, 800*time.Millisecond)
	l.Finish(types.OutcomeCompleted, 12*time.Second)

	text := l.Text()
	lines := strings.Split(text, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), text)
	}
	if lines[0] != "processing order #101, recipe Phở bò" {
		t.Errorf("bad header: %q", lines[0])
	}
	if lines[1] != "- Task 1: add broth [Success] - 2.5s" {
		t.Errorf("bad task line: %q", lines[1])
	}
	if lines[2] != "- Task 2: garnish (2/3) [Failed] - 0.8s" {
		t.Errorf("bad failed task line: %q", lines[2])
	}
	if lines[3] != "order #101 finished in 12.0s [Success]" {
		t.Errorf("bad summary: %q", lines[3])
	}
}

func TestBeginResets(t *testing.T) {
	l := oplog.New()
	l.Begin(1, "first")
	l.Task("a", true, time.Second)
	l.Task("b", true, time.Second)

	l.Begin(2, "second")
	if l.TaskCount() != 0 {
		t.Errorf("task count not reset: %d", l.TaskCount())
	}
	if strings.Contains(l.Text(), "first") {
		t.Errorf("old order leaked into new log: %q", l.Text())
	}

	l.Task("c", true, time.Second)
	if !strings.Contains(l.Text(), "- Task 1: c") {
		t.Errorf("sequence numbers should restart per order: %q", l.Text())
	}
}

func TestOutcomeTags(t *testing.T) {
	cases := map[types.OrderOutcome]string{
		types.OutcomeCompleted: "[Success]",
		types.OutcomeFailed:    "[Failed]",
		types.OutcomeTimedOut:  "[TimedOut]",
		types.OutcomeCancelled: "[Cancelled]",
	}
	for outcome, tag := range cases {
		l := oplog.New()
		l.Begin(7, "r")
		l.Finish(outcome, time.Second)
		if !strings.Contains(l.Text(), tag) {
			t.Errorf("outcome %s: summary missing %s: %q", outcome, tag, l.Text())
		}
	}
}
