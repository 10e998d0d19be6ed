package schedule

import (
	"context"
)

// BatchItem records a persisted candidate.
type BatchItem struct {
	Index int    `json:"index"`
	Row   int    `json:"row,omitempty"`
	ID    string `json:"id"`
}

// BatchError records a rejected candidate.
type BatchError struct {
	Index int    `json:"index"`
	Row   int    `json:"row,omitempty"`
	Error string `json:"error"`
}

// BatchResult summarizes ImportBatch. Results and ErrorDetails are in input
// order and together cover every index exactly once.
type BatchResult struct {
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	Results      []BatchItem  `json:"results"`
	ErrorDetails []BatchError `json:"error_details"`
}

// ImportBatch creates each candidate independently, in order. A failing
// candidate is recorded at its index and never affects the others. Only an
// unreachable store, detected before the first candidate, fails the call.
func (s *Service) ImportBatch(ctx context.Context, candidates []Candidate) (*BatchResult, error) {
	if err := s.repo.Ping(ctx); err != nil {
		return nil, &InfrastructureError{Op: "import batch", Err: err}
	}

	result := &BatchResult{
		Results:      []BatchItem{},
		ErrorDetails: []BatchError{},
	}
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			result.ErrorCount++
			result.ErrorDetails = append(result.ErrorDetails, BatchError{Index: i, Row: c.Row, Error: err.Error()})
			continue
		}

		d, err := s.Create(ctx, c)
		if err != nil {
			s.log.Debug().Err(err).Int("index", i).Msg("batch candidate rejected")
			result.ErrorCount++
			result.ErrorDetails = append(result.ErrorDetails, BatchError{Index: i, Row: c.Row, Error: err.Error()})
			continue
		}
		result.SuccessCount++
		result.Results = append(result.Results, BatchItem{Index: i, Row: c.Row, ID: d.ID})
	}

	s.log.Info().
		Int("total", len(candidates)).
		Int("succeeded", result.SuccessCount).
		Int("failed", result.ErrorCount).
		Msg("batch import finished")
	return result, nil
}
