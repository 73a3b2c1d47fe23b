package hermes

import (
	"strings"
	"testing"
)

func TestRunSubjectsAreCapturedByStream(t *testing.T) {
	subjects := []string{
		SubjectRunCreated("r1"),
		SubjectRunClosed("r1"),
		SubjectPlanIngested("r1"),
		SubjectPlanRejected("r1"),
		SubjectFrontierChanged("r1"),
		SubjectActionCredited("r1"),
		SubjectFrontierStats,
	}
	for _, s := range subjects {
		if !captured(s) {
			t.Errorf("subject %s not captured by stream subjects %v", s, StreamSubjects)
		}
	}
	if captured(SubjectPlanSubmit) {
		t.Errorf("inbound subject %s must not be persisted to the stream", SubjectPlanSubmit)
	}
}

func TestSubjectFormat(t *testing.T) {
	if got := SubjectPlanIngested("abc"); got != "frontier.run.abc.plan.ingested" {
		t.Errorf("unexpected subject %s", got)
	}
}

// captured matches NATS subjects against the stream filters, honouring the ">" wildcard.
func captured(subject string) bool {
	for _, filter := range StreamSubjects {
		if filter == subject {
			return true
		}
		if prefix, ok := strings.CutSuffix(filter, ">"); ok && strings.HasPrefix(subject, prefix) {
			return true
		}
	}
	return false
}
