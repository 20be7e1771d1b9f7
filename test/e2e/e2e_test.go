//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/config"
	"github.com/hoosierprep/sessiond/internal/examapi"
	"github.com/hoosierprep/sessiond/internal/handler"
	"github.com/hoosierprep/sessiond/internal/router"
	"github.com/hoosierprep/sessiond/internal/session"
	"github.com/hoosierprep/sessiond/internal/validator"
)

// fakeUpstream is an in-process stand-in for the exam service.
type fakeUpstream struct {
	saves  int32
	grades int32
}

func (f *fakeUpstream) handler() http.Handler {
	// Go 1.21's ServeMux has no method-aware patterns, so routes are
	// registered by path and the method is checked inside each handler.
	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/exams/7", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"examId": 7,
			"questions": [
				{"id": 101, "stem": "Capital of France?", "type": "short"},
				{"id": 102, "stem": "Pick one", "type": "mcq", "options": ["A", "B", "C"]},
				{"id": 103, "stem": "Pick all", "type": "multi", "options": ["x", "y", "z"]}
			]
		}`)
	}))
	mux.HandleFunc("/exams/7/attempts/in-progress", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	mux.HandleFunc("/exams/7/attempts", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"attemptId": 42}`)
	}))
	mux.HandleFunc("/attempts/42/progress", requireMethod(http.MethodPut, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.saves, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("/exams/7/grade", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.grades, 1)
		fmt.Fprint(w, `{"attemptId": 42, "scorePct": 66.7, "perQuestion": []}`)
	}))
	mux.HandleFunc("/exams/7/preview", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"answers": [
			{"questionId": 101, "correctAnswer": "paris"},
			{"questionId": 102, "correctAnswer": "B"},
			{"questionId": 103, "correctAnswer": ["x", "z"]}
		]}`)
	}))
	return mux
}

// newDaemon wires the full stack against the fake upstream and serves it
// over a test listener, exactly as cmd/sessiond does.
func newDaemon(t *testing.T, upstreamURL string) string {
	t.Helper()

	validator.Setup()
	log := zerolog.Nop()

	cfg := &config.Config{GinMode: "test"}
	api := examapi.NewClient(upstreamURL, 5*time.Second, nil, log)

	store := session.NewStore()
	coordinator := session.NewCoordinator(store, api, log)
	submitter := session.NewSubmitter(store, api, 10*time.Millisecond, log)
	guard := session.NewGuard(store, coordinator, log)

	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(store, coordinator, submitter, guard),
		WS:      handler.NewWSHandler(store, coordinator, submitter, log, nil),
	}

	srv := httptest.NewServer(router.SetupRouter(handlers, cfg))
	t.Cleanup(srv.Close)
	return srv.URL
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, method, url string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func TestExamFlow(t *testing.T) {
	upstream := &fakeUpstream{}
	upstreamSrv := httptest.NewServer(upstream.handler())
	defer upstreamSrv.Close()

	base := newDaemon(t, upstreamSrv.URL)

	// Open an exam session.
	status, env := call(t, http.MethodPost, base+"/api/v1/session/open", map[string]interface{}{
		"exam_id": 7,
		"mode":    "exam",
	})
	if status != http.StatusOK {
		t.Fatalf("open: status %d, error %+v", status, env.Error)
	}
	var opened struct {
		Session struct {
			AttemptID    int64   `json:"attempt_id"`
			Phase        string  `json:"phase"`
			DisplayOrder []int64 `json:"display_order"`
		} `json:"session"`
	}
	if err := json.Unmarshal(env.Data, &opened); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if opened.Session.Phase != "ACTIVE" || opened.Session.AttemptID != 42 {
		t.Fatalf("session = %+v", opened.Session)
	}
	if len(opened.Session.DisplayOrder) != 3 {
		t.Fatalf("display order = %v", opened.Session.DisplayOrder)
	}

	// Record answers, a bookmark, and a cursor move.
	status, env = call(t, http.MethodPost, base+"/api/v1/session/answer", map[string]interface{}{
		"question_id": 101,
		"value":       "paris",
	})
	if status != http.StatusOK {
		t.Fatalf("answer: status %d, error %+v", status, env.Error)
	}
	status, _ = call(t, http.MethodPost, base+"/api/v1/session/answer", map[string]interface{}{
		"question_id": 103,
		"value":       []string{"x", "z"},
	})
	if status != http.StatusOK {
		t.Fatalf("multi answer: status %d", status)
	}
	status, _ = call(t, http.MethodPost, base+"/api/v1/session/bookmark", map[string]interface{}{
		"question_id": 102,
	})
	if status != http.StatusOK {
		t.Fatalf("bookmark: status %d", status)
	}
	status, _ = call(t, http.MethodPost, base+"/api/v1/session/cursor", map[string]interface{}{
		"index": 1,
	})
	if status != http.StatusOK {
		t.Fatalf("cursor: status %d", status)
	}

	// Unknown question is rejected.
	status, env = call(t, http.MethodPost, base+"/api/v1/session/answer", map[string]interface{}{
		"question_id": 999,
		"value":       "x",
	})
	if status != http.StatusNotFound || env.Error == nil || env.Error.Code != "UNKNOWN_QUESTION" {
		t.Fatalf("unknown question: status %d, error %+v", status, env.Error)
	}

	// Save, then submit.
	status, _ = call(t, http.MethodPost, base+"/api/v1/session/save", nil)
	if status != http.StatusOK {
		t.Fatalf("save: status %d", status)
	}
	if atomic.LoadInt32(&upstream.saves) != 1 {
		t.Fatalf("upstream saves = %d", upstream.saves)
	}

	status, env = call(t, http.MethodPost, base+"/api/v1/session/submit", nil)
	if status != http.StatusOK {
		t.Fatalf("submit: status %d, error %+v", status, env.Error)
	}
	var submitted struct {
		Result struct {
			AttemptID int64   `json:"attempt_id"`
			ScorePct  float64 `json:"score_pct"`
		} `json:"result"`
	}
	if err := json.Unmarshal(env.Data, &submitted); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if submitted.Result.ScorePct != 66.7 {
		t.Fatalf("score = %v", submitted.Result.ScorePct)
	}

	// Second submit hits the terminal guard, not the upstream.
	status, env = call(t, http.MethodPost, base+"/api/v1/session/submit", nil)
	if status != http.StatusConflict {
		t.Fatalf("re-submit: status %d, error %+v", status, env.Error)
	}
	if atomic.LoadInt32(&upstream.grades) != 1 {
		t.Fatalf("upstream graded %d times, want 1", upstream.grades)
	}

	// Finished session leaves without friction.
	status, _ = call(t, http.MethodPost, base+"/api/v1/session/leave", map[string]interface{}{
		"resolution": "discard",
	})
	if status != http.StatusOK {
		t.Fatalf("leave: status %d", status)
	}
	status, _ = call(t, http.MethodGet, base+"/api/v1/session", nil)
	if status != http.StatusNotFound {
		t.Fatalf("session survived leave: status %d", status)
	}
}

func TestPracticeFlow(t *testing.T) {
	upstream := &fakeUpstream{}
	upstreamSrv := httptest.NewServer(upstream.handler())
	defer upstreamSrv.Close()

	base := newDaemon(t, upstreamSrv.URL)

	status, env := call(t, http.MethodPost, base+"/api/v1/session/open", map[string]interface{}{
		"exam_id": 7,
		"mode":    "practice",
	})
	if status != http.StatusOK {
		t.Fatalf("open: status %d, error %+v", status, env.Error)
	}

	// Correct answer gets instant feedback.
	call(t, http.MethodPost, base+"/api/v1/session/answer", map[string]interface{}{
		"question_id": 101,
		"value":       " Paris ",
	})
	status, env = call(t, http.MethodPost, base+"/api/v1/session/complete", map[string]interface{}{
		"question_id": 101,
	})
	if status != http.StatusOK {
		t.Fatalf("complete: status %d, error %+v", status, env.Error)
	}
	var fb struct {
		Feedback struct {
			Correct bool `json:"correct"`
			AllDone bool `json:"all_done"`
		} `json:"feedback"`
	}
	if err := json.Unmarshal(env.Data, &fb); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if !fb.Feedback.Correct || fb.Feedback.AllDone {
		t.Fatalf("feedback = %+v", fb.Feedback)
	}

	// Checking the remaining questions triggers the grace-period
	// auto-submission.
	call(t, http.MethodPost, base+"/api/v1/session/complete", map[string]interface{}{"question_id": 102})
	call(t, http.MethodPost, base+"/api/v1/session/complete", map[string]interface{}{"question_id": 103})

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&upstream.grades) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("auto-submit never reached the upstream")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
