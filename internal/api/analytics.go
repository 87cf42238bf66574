package api

import "context"

// PatientAnalytics fetches the per-patient dashboard summary.
func (c *Client) PatientAnalytics(ctx context.Context, patientID string) (*Analytics, error) {
	var resp struct {
		Data struct {
			Analytics Analytics `json:"analytics"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/analytics/"+patientID, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Analytics, nil
}
