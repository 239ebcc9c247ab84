package audit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"oncall-roster-audit/internal/audit"
	"oncall-roster-audit/internal/config"
	"oncall-roster-audit/internal/opsgenie"
)

// callRecorder wraps a handler and records every "METHOD path" it serves
type callRecorder struct {
	mu    sync.Mutex
	calls []string
	next  http.Handler
}

func (c *callRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.calls = append(c.calls, r.Method+" "+r.URL.Path)
	c.mu.Unlock()
	c.next.ServeHTTP(w, r)
}

func (c *callRecorder) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *callRecorder) count(call string) int {
	n := 0
	for _, recorded := range c.recorded() {
		if recorded == call {
			n++
		}
	}
	return n
}

// WorkflowTestSuite exercises the cascading downgrade against a fake platform
type WorkflowTestSuite struct {
	suite.Suite
	mockServer *httptest.Server
	recorder   *callRecorder
}

func (suite *WorkflowTestSuite) TearDownTest() {
	if suite.mockServer != nil {
		suite.mockServer.Close()
		suite.mockServer = nil
	}
}

func (suite *WorkflowTestSuite) newWorkflow(handler http.Handler, rotationEdits bool) *audit.Workflow {
	suite.recorder = &callRecorder{next: handler}
	suite.mockServer = httptest.NewServer(suite.recorder)
	cfg := &config.Config{
		APIKey:              "test-key",
		APIBaseURL:          suite.mockServer.URL,
		HTTPTimeoutSec:      5,
		RetryMaxAttempts:    3,
		PageLimit:           100,
		MaxOffset:           1000,
		EnableRotationEdits: rotationEdits,
	}
	return audit.NewWorkflow(opsgenie.NewClient(cfg), cfg)
}

// bobPlatform serves a user bob with two teams and one schedule whose single
// rotation references him. Individual routes can be overridden.
func bobPlatform(overrides map[string]http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	routes := map[string]http.HandlerFunc{
		"GET /users/bob": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"id":"u-bob","username":"bob"}}`))
		},
		"GET /users/bob/teams": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":"t1","name":"payments"},{"id":"t2","name":"platform"}]}`))
		},
		"DELETE /teams/t1/members/u-bob": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"Deleted"}`))
		},
		"DELETE /teams/t2/members/u-bob": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"Deleted"}`))
		},
		"GET /users/bob/schedules": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":"s1","name":"Payments On-Call"}]}`))
		},
		"GET /schedules/s1/rotations": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":"rot-1","name":"weekday","participants":[
				{"type":"user","username":"alice"},
				{"type":"user","username":"bob"}
			]}]}`))
		},
		"PATCH /schedules/s1/rotations/rot-1": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"Updated"}`))
		},
		"PATCH /users/u-bob": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"Updated"}`))
		},
	}
	for pattern, handler := range overrides {
		routes[pattern] = handler
	}
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	return mux
}

func serverError(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"message":"boom"}`))
}

func (suite *WorkflowTestSuite) TestIdentityFailure_ShortCircuitsUser() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/ghost", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no such user"}`))
	})
	workflow := suite.newWorkflow(mux, true)

	report := workflow.Downgrade(context.Background(), []string{"ghost"}, "Stakeholder")

	suite.Require().Len(report.Outcomes, 1)
	suite.Equal(audit.StatusSkipped, report.Outcomes[0].Status)
	suite.Equal(audit.ReasonIDUnresolved, report.Outcomes[0].Reason)
	suite.Equal([]string{"GET /users/ghost"}, suite.recorder.recorded(),
		"no team, schedule or role call may follow a failed identity resolution")
}

func (suite *WorkflowTestSuite) TestHappyPath_FullCascade() {
	workflow := suite.newWorkflow(bobPlatform(nil), true)

	report := workflow.Downgrade(context.Background(), []string{"bob"}, "Stakeholder")

	suite.Require().Len(report.Outcomes, 1)
	outcome := report.Outcomes[0]
	suite.Equal(audit.StatusRoleChanged, outcome.Status)
	suite.Equal(2, outcome.TeamsRemoved)
	suite.Equal(0, outcome.TeamFailures)
	suite.Equal(1, outcome.RotationsEdited)
	suite.Equal(1, suite.recorder.count("PATCH /users/u-bob"))
	suite.Equal(1, report.Changed())
	suite.Equal(0, report.Skipped())
}

func (suite *WorkflowTestSuite) TestTeamRemovalFailure_DoesNotBlockLaterStages() {
	workflow := suite.newWorkflow(bobPlatform(map[string]http.HandlerFunc{
		"DELETE /teams/t1/members/u-bob": serverError,
	}), true)

	report := workflow.Downgrade(context.Background(), []string{"bob"}, "Stakeholder")

	outcome := report.Outcomes[0]
	suite.Equal(audit.StatusRoleChanged, outcome.Status)
	suite.Equal(1, outcome.TeamsRemoved)
	suite.Equal(1, outcome.TeamFailures)
	suite.Equal(1, outcome.RotationsEdited)
	suite.Equal(1, suite.recorder.count("DELETE /teams/t2/members/u-bob"),
		"the second team removal must still run")
	suite.Equal(1, suite.recorder.count("PATCH /users/u-bob"))
}

func (suite *WorkflowTestSuite) TestTeamFetchFailure_StillPatchesRole() {
	workflow := suite.newWorkflow(bobPlatform(map[string]http.HandlerFunc{
		"GET /users/bob/teams": serverError,
	}), true)

	report := workflow.Downgrade(context.Background(), []string{"bob"}, "Stakeholder")

	outcome := report.Outcomes[0]
	suite.Equal(audit.StatusRoleChanged, outcome.Status)
	suite.True(outcome.TeamFetchFailed)
	suite.Equal(0, outcome.TeamsRemoved)
	suite.Zero(suite.recorder.count("DELETE /teams/t1/members/u-bob"))
	suite.Equal(1, suite.recorder.count("PATCH /users/u-bob"))
}

func (suite *WorkflowTestSuite) TestScheduleFetchFailure_StillPatchesRole() {
	workflow := suite.newWorkflow(bobPlatform(map[string]http.HandlerFunc{
		"GET /users/bob/schedules": serverError,
	}), true)

	report := workflow.Downgrade(context.Background(), []string{"bob"}, "Stakeholder")

	outcome := report.Outcomes[0]
	suite.Equal(audit.StatusRoleChanged, outcome.Status)
	suite.Equal(0, outcome.RotationsEdited)
	suite.Equal(1, suite.recorder.count("PATCH /users/u-bob"))
}

func (suite *WorkflowTestSuite) TestRotationEditsDisabled_NoRotationPatchSent() {
	workflow := suite.newWorkflow(bobPlatform(nil), false)

	report := workflow.Downgrade(context.Background(), []string{"bob"}, "Stakeholder")

	outcome := report.Outcomes[0]
	suite.Equal(audit.StatusRoleChanged, outcome.Status)
	suite.Equal(0, outcome.RotationsEdited)
	suite.Zero(suite.recorder.count("PATCH /schedules/s1/rotations/rot-1"),
		"destructive rotation edits require the explicit opt-in")
	suite.Equal(1, suite.recorder.count("PATCH /users/u-bob"))
}

func (suite *WorkflowTestSuite) TestRolePatchFailure_ReportedAsSkipped() {
	workflow := suite.newWorkflow(bobPlatform(map[string]http.HandlerFunc{
		"PATCH /users/u-bob": serverError,
	}), true)

	report := workflow.Downgrade(context.Background(), []string{"bob"}, "Stakeholder")

	outcome := report.Outcomes[0]
	suite.Equal(audit.StatusSkipped, outcome.Status)
	suite.Equal(audit.ReasonRolePatchError, outcome.Reason)
	suite.Equal(0, report.Changed())
	suite.Equal(1, report.Skipped())
}

func TestWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowTestSuite))
}
