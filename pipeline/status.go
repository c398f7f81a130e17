package pipeline

import (
	"context"

	"vidvault/models"
)

// Status aggregates the job counts for one asset.
type Status struct {
	AssetID    string                  `json:"asset_id"`
	Total      int                     `json:"total"`
	Counts     map[models.JobStatus]int `json:"counts"`
	Completion float64                 `json:"completion"` // completed / total, 0 when empty
	Jobs       []*models.ProcessingJob `json:"jobs"`
}

// GetProcessingStatus returns the per-status counts, completion percentage
// and raw job list for one asset.
func (p *Pipeline) GetProcessingStatus(ctx context.Context, assetID string) (*Status, error) {
	counts, err := p.store.CountJobsByStatus(ctx, assetID)
	if err != nil {
		return nil, err
	}
	jobs, err := p.store.ListJobsByAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		AssetID: assetID,
		Counts:  counts,
		Jobs:    jobs,
	}
	for _, n := range counts {
		st.Total += n
	}
	if st.Total > 0 {
		st.Completion = float64(counts[models.StatusCompleted]) / float64(st.Total) * 100
	}
	return st, nil
}
