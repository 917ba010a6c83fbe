package hermes

import (
	"strings"
	"testing"
)

func TestSubjectsCoveredByStream(t *testing.T) {
	prefix := strings.TrimSuffix(SubjectAll, ">")
	subjects := []string{
		SubjectBatchCompleted("b-1"),
		SubjectArtifactStored("a-1"),
		SubjectSolveTimeout,
	}
	for _, s := range subjects {
		if !strings.HasPrefix(s, prefix) {
			t.Errorf("subject %q is outside stream filter %q", s, SubjectAll)
		}
	}
	if got := SubjectBatchCompleted("42"); got != "paylens.batch.42.completed" {
		t.Errorf("unexpected batch subject %q", got)
	}
}
