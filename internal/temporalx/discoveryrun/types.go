package discoveryrun

const (
	WorkflowName     = "artifact_discovery"
	ActivityDiscover = "artifact_discovery_run"

	// ErrTypeArtifactNotFound marks the one failure retries cannot heal: the
	// artifact row is gone, so the workflow gives up immediately.
	ErrTypeArtifactNotFound = "ArtifactNotFound"
)

// WorkflowIDFor derives the dedup key. One workflow per artifact at a time;
// re-ingestion of a finished artifact starts a fresh run.
func WorkflowIDFor(artifactID string) string {
	return "discovery-" + artifactID
}
