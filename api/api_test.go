package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"shortsfactory/jobs"
	"shortsfactory/types"

	"github.com/gin-gonic/gin"
)

type fakeJobs struct {
	submitted []types.Job
	statuses  map[string]types.JobStatus
	submitErr error
	cancelErr error
}

func (f *fakeJobs) Submit(job types.Job) (types.JobStatus, error) {
	if f.submitErr != nil {
		return types.JobStatus{}, f.submitErr
	}
	f.submitted = append(f.submitted, job)
	return types.JobStatus{ID: "job-1", Job: job, State: types.JobPending}, nil
}

func (f *fakeJobs) Get(id string) (types.JobStatus, error) {
	st, ok := f.statuses[id]
	if !ok {
		return types.JobStatus{}, jobs.ErrJobNotFound
	}
	return st, nil
}

func (f *fakeJobs) List() ([]types.JobStatus, error) {
	var out []types.JobStatus
	for _, st := range f.statuses {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeJobs) Cancel(id string) (types.JobStatus, error) {
	if _, ok := f.statuses[id]; !ok {
		return types.JobStatus{}, jobs.ErrJobNotFound
	}
	return f.statuses[id], f.cancelErr
}

type fakeTopics struct {
	list []types.Topic
	err  error
}

func (f *fakeTopics) Topics(ctx context.Context, feedURL string, n int) ([]types.Topic, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.list) > n {
		return f.list[:n], nil
	}
	return f.list, nil
}

func (f *fakeTopics) RunOnce(ctx context.Context) ([]types.JobStatus, error) {
	return nil, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitJob(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		submitErr  error
		wantStatus int
	}{
		{"accepted", gin.H{"topic": "ocean facts", "duration_hint": 30, "style": "dark", "publish": true}, nil, http.StatusAccepted},
		{"missing topic", gin.H{"duration_hint": 30}, nil, http.StatusBadRequest},
		{"missing duration", gin.H{"topic": "ocean"}, nil, http.StatusBadRequest},
		{"invalid job", gin.H{"topic": "ocean", "duration_hint": -5}, jobs.ErrInvalidJob, http.StatusBadRequest},
		{"queue full", gin.H{"topic": "ocean", "duration_hint": 30}, jobs.ErrTooManyJobs, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeJobs{submitErr: tt.submitErr}
			w := do(t, NewRouter(svc, nil), http.MethodPost, "/api/jobs", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}
			if w.Header().Get("Location") != "/api/jobs/job-1" {
				t.Fatalf("location = %q", w.Header().Get("Location"))
			}
			job := svc.submitted[0]
			if job.Topic != "ocean facts" || job.DurationHint != 30 || job.Style != types.StyleDark || !job.Publish {
				t.Fatalf("unexpected job %+v", job)
			}
		})
	}
}

func TestGetAndListJobs(t *testing.T) {
	svc := &fakeJobs{statuses: map[string]types.JobStatus{
		"a": {ID: "a", State: types.JobRunning, Stage: types.StageAssets},
		"b": {ID: "b", State: types.JobCompleted},
	}}
	r := NewRouter(svc, nil)

	w := do(t, r, http.MethodGet, "/api/jobs/a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st types.JobStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Stage != types.StageAssets {
		t.Fatalf("stage = %q", st.Stage)
	}

	if w := do(t, r, http.MethodGet, "/api/jobs/missing", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/jobs?state=completed", nil)
	var list struct {
		Jobs  []types.JobStatus `json:"jobs"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Jobs[0].ID != "b" {
		t.Fatalf("unexpected filtered list %+v", list)
	}
}

func TestCancelJob(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		cancelErr  error
		wantStatus int
	}{
		{"accepted", "a", nil, http.StatusAccepted},
		{"not found", "zzz", nil, http.StatusNotFound},
		{"committed", "a", jobs.ErrAlreadyCommitted, http.StatusConflict},
		{"finished", "a", jobs.ErrJobFinished, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeJobs{
				statuses:  map[string]types.JobStatus{"a": {ID: "a", State: types.JobRunning}},
				cancelErr: tt.cancelErr,
			}
			w := do(t, NewRouter(svc, nil), http.MethodDelete, "/api/jobs/"+tt.id, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestDownloadVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "done.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := &fakeJobs{statuses: map[string]types.JobStatus{
		"done":    {ID: "done", State: types.JobCompleted, Committed: true, Artifact: &types.Artifact{Path: path}},
		"running": {ID: "running", State: types.JobRunning},
	}}
	r := NewRouter(svc, nil)

	w := do(t, r, http.MethodGet, "/api/jobs/done/video", nil)
	if w.Code != http.StatusOK || w.Body.String() != "mp4" {
		t.Fatalf("download = %d %q", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/api/jobs/running/video", nil); w.Code != http.StatusConflict {
		t.Fatalf("unfinished video status = %d", w.Code)
	}
}

func TestTopicsPreview(t *testing.T) {
	topics := &fakeTopics{list: []types.Topic{{Title: "Mars"}, {Title: "Venus"}}}
	r := NewRouter(&fakeJobs{}, topics)

	w := do(t, r, http.MethodGet, "/api/topics?feed=science&n=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d", resp.Count)
	}

	if w := do(t, r, http.MethodGet, "/api/topics", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing feed status = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/topics?feed=x&n=zero", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad n status = %d", w.Code)
	}

	topics.err = errors.New("feed down")
	if w := do(t, r, http.MethodGet, "/api/topics?feed=science", nil); w.Code != http.StatusBadGateway {
		t.Fatalf("feed error status = %d", w.Code)
	}

	if w := do(t, r, http.MethodPost, "/api/topics/refresh", nil); w.Code != http.StatusAccepted {
		t.Fatalf("refresh status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	if w := do(t, NewRouter(&fakeJobs{}, nil), http.MethodGet, "/api/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
}
