package sync

// Summary tallies the results of one run
type Summary struct {
	RunID         string
	Uploaded      int
	Skipped       int
	Failed        int
	BytesUploaded int64
	BytesHashed   int64
	Failures      []FileResult
}

func (s *Summary) Add(res FileResult) {
	s.BytesHashed += res.Size
	switch res.Outcome {
	case Uploaded:
		s.Uploaded++
		s.BytesUploaded += res.Size
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
		s.Failures = append(s.Failures, res)
	}
}

func (s *Summary) Total() int {
	return s.Uploaded + s.Skipped + s.Failed
}
