package stats

import "time"

// Stage names recorded by the pipeline.
const (
	StageSearch   = "search"
	StageDownload = "download"
	StageExtract  = "extract"
	StageAcquire  = "acquire"
)

// Stages groups one Latency per pipeline stage.
type Stages struct {
	Search   *Latency
	Download *Latency
	Extract  *Latency
	Acquire  *Latency
}

func NewStages(window time.Duration) *Stages {
	return &Stages{
		Search:   NewLatency(window),
		Download: NewLatency(window),
		Extract:  NewLatency(window),
		Acquire:  NewLatency(window),
	}
}

// Snapshot returns every stage's aggregate keyed by stage name.
func (s *Stages) Snapshot() map[string]Snapshot {
	return map[string]Snapshot{
		StageSearch:   s.Search.Snapshot(),
		StageDownload: s.Download.Snapshot(),
		StageExtract:  s.Extract.Snapshot(),
		StageAcquire:  s.Acquire.Snapshot(),
	}
}
