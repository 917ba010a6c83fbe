package hermes

const (
	SubjectSolveTimeout = "paylens.solve.timeout"
	SubjectAll          = "paylens.>"

	StreamName   = "PAYLENS_EVENTS"
	StreamMaxAge = "168h" // 7 days
)

func SubjectBatchCompleted(batchID string) string { return "paylens.batch." + batchID + ".completed" }
func SubjectArtifactStored(artifactID string) string { return "paylens.artifact." + artifactID + ".stored" }
