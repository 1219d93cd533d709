package entity

// SampledFrame is one compressed still image selected from the source video.
// Frames are owned by the pipeline run that produced them and are never shared
// across concurrent jobs.
type SampledFrame struct {
	Name string
	Data []byte
}

// ArchiveArtifact is the packaged frame set, held fully in memory. Its
// lifetime is the single orchestrator run that produced it.
type ArchiveArtifact struct {
	Data      []byte
	SizeBytes int64
}
