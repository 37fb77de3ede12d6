package downloader

// Outcome is the single terminal state of one track run.
type Outcome int

const (
	// OutcomeDownloaded means the file reached its final path, whether or
	// not tagging fully succeeded.
	OutcomeDownloaded Outcome = iota

	// OutcomeSkipped means the track was already present or deliberately
	// not attempted.
	OutcomeSkipped

	// OutcomeFailed means the track could not be retrieved or written.
	OutcomeFailed

	// OutcomeDeferred means the service rate-limited the retrieval and the
	// track is eligible for a later pass.
	OutcomeDeferred
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// TrackResult reports how one track run ended.
type TrackResult struct {
	Outcome Outcome

	// Module and TrackID identify the track on its service.
	Module  string
	TrackID string

	// Path is the final file location for downloaded and skipped tracks.
	Path string

	// Err carries the failure cause for OutcomeFailed.
	Err error
}

// Summary tallies the terminal outcomes of a multi-track operation.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
	Deferred   int

	// Paths lists final file locations in processing order.
	Paths []string

	// Results holds every per-track result in processing order.
	Results []TrackResult
}

func (s *Summary) add(res TrackResult) {
	s.Results = append(s.Results, res)
	switch res.Outcome {
	case OutcomeDownloaded:
		s.Downloaded++
		if res.Path != "" {
			s.Paths = append(s.Paths, res.Path)
		}
	case OutcomeSkipped:
		s.Skipped++
		if res.Path != "" {
			s.Paths = append(s.Paths, res.Path)
		}
	case OutcomeFailed:
		s.Failed++
	case OutcomeDeferred:
		s.Deferred++
	}
}

// merge folds another summary into this one.
func (s *Summary) merge(other *Summary) {
	if other == nil {
		return
	}
	s.Downloaded += other.Downloaded
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Deferred += other.Deferred
	s.Paths = append(s.Paths, other.Paths...)
	s.Results = append(s.Results, other.Results...)
}

// Total returns the number of accounted track runs.
func (s *Summary) Total() int {
	return s.Downloaded + s.Skipped + s.Failed + s.Deferred
}
