package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shortsfactory/types"
)

// JobsClient is a thin HTTP client for the jobs API
type JobsClient struct {
	baseURL string
	client  *http.Client
}

// NewJobsClient creates a new jobs API client
func NewJobsClient(baseURL string) *JobsClient {
	return &JobsClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Submit creates a job and returns its pending status
func (c *JobsClient) Submit(job types.Job) (*types.JobStatus, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Post(c.baseURL+"/api/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to submit job: %w", err)
	}
	defer resp.Body.Close()
	return decodeStatus(resp, http.StatusAccepted)
}

// GetStatus fetches the current status of a job
func (c *JobsClient) GetStatus(id string) (*types.JobStatus, error) {
	resp, err := c.client.Get(c.baseURL + "/api/jobs/" + id)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()
	return decodeStatus(resp, http.StatusOK)
}

// Cancel asks the server to cancel a job
func (c *JobsClient) Cancel(id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/jobs/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return serverError(resp)
	}
	return nil
}

func decodeStatus(resp *http.Response, want int) (*types.JobStatus, error) {
	if resp.StatusCode != want {
		return nil, serverError(resp)
	}
	var status types.JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

func serverError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
}
