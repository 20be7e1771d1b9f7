// Package examapi is the HTTP client for the upstream exam/attempt service.
// It owns no business logic: every call maps 1:1 onto an upstream endpoint
// and all persisted attempt state lives behind this contract.
package examapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/model"
)

// ErrNotFound marks a 404 from the upstream service.
var ErrNotFound = errors.New("upstream resource not found")

// Client talks to the upstream exam service.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *ExamCache
	log     zerolog.Logger
}

// NewClient creates a Client for the given base URL (e.g.
// "http://127.0.0.1:8000/api"). cache may be nil to disable question-set
// caching.
func NewClient(baseURL string, timeout time.Duration, cache *ExamCache, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
		log:     log.With().Str("component", "examapi").Logger(),
	}
}

// GetExam fetches the question set for an exam. Question sets are immutable
// once created, so a cache hit never needs revalidation.
func (c *Client) GetExam(ctx context.Context, examID int64) (*Exam, error) {
	if c.cache != nil {
		if exam, ok := c.cache.Get(ctx, examID); ok {
			return exam, nil
		}
	}

	var out Exam
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/exams/%d", examID), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get exam %d: %w", examID, err)
	}

	if c.cache != nil {
		c.cache.Put(ctx, &out)
	}
	return &out, nil
}

// StartAttempt allocates a new attempt id for an exam.
func (c *Client) StartAttempt(ctx context.Context, examID int64) (int64, error) {
	var out startAttemptResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/exams/%d/attempts", examID), nil, nil, &out); err != nil {
		return 0, fmt.Errorf("start attempt for exam %d: %w", examID, err)
	}
	if out.AttemptID == 0 {
		return 0, fmt.Errorf("start attempt for exam %d: upstream returned no attempt id", examID)
	}
	return out.AttemptID, nil
}

// GetInProgressAttempt asks whether an unfinished attempt exists for an exam.
func (c *Client) GetInProgressAttempt(ctx context.Context, examID int64) (*InProgressAttempt, error) {
	var out InProgressAttempt
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/exams/%d/attempts/in-progress", examID), nil, nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &InProgressAttempt{Exists: false}, nil
		}
		return nil, fmt.Errorf("get in-progress attempt for exam %d: %w", examID, err)
	}
	return &out, nil
}

// GetProgress fetches the persisted snapshot for a known attempt id.
func (c *Client) GetProgress(ctx context.Context, attemptID int64) (*Progress, error) {
	var out Progress
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/attempts/%d/progress", attemptID), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get progress for attempt %d: %w", attemptID, err)
	}
	return &out, nil
}

// SaveProgress persists one full progress snapshot for an attempt.
func (c *Client) SaveProgress(ctx context.Context, attemptID int64, snap SaveProgressRequest) error {
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/attempts/%d/progress", attemptID), nil, snap, nil); err != nil {
		return fmt.Errorf("save progress for attempt %d: %w", attemptID, err)
	}
	return nil
}

// GradeExam submits the final answer payload for authoritative grading.
// Duration, mode, and the optional explanation API key ride in headers, as
// the upstream expects.
func (c *Client) GradeExam(ctx context.Context, examID int64, req GradeRequest) (*GradeReport, error) {
	headers := map[string]string{
		"X-Exam-Duration": strconv.FormatInt(req.DurationSeconds, 10),
		"X-Exam-Type":     string(req.Mode),
	}
	if req.APIKey != "" {
		headers["X-Gemini-API-Key"] = req.APIKey
	}

	var out GradeReport
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/exams/%d/grade", examID), headers, req.Answers, &out); err != nil {
		return nil, fmt.Errorf("grade exam %d: %w", examID, err)
	}
	if out.AttemptID == 0 {
		return nil, fmt.Errorf("grade exam %d: upstream returned no attempt id", examID)
	}
	return &out, nil
}

// PreviewExamAnswers fetches the correct answers keyed by question id.
// Practice mode only; exam mode must never call this.
func (c *Client) PreviewExamAnswers(ctx context.Context, examID int64) (map[int64]model.AnswerValue, error) {
	var out previewResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/exams/%d/preview", examID), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("preview answers for exam %d: %w", examID, err)
	}

	key := make(map[int64]model.AnswerValue, len(out.Answers))
	for _, a := range out.Answers {
		key[a.QuestionID] = a.CorrectAnswer
	}
	return key, nil
}

// do runs one upstream request. body is JSON-encoded when non-nil; out is
// JSON-decoded from the response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Upstream call")

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
