package evaluator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tracklap/simharness/internal/testutil"
)

func TestHandleDashboardRendersTrackerNames(t *testing.T) {
	e := New(nil, nil, time.Second)
	e.results["top_speed-sector1"] = 142.3

	req := httptest.NewRequest(http.MethodGet, "/evaluator/dashboard", nil)
	rec := httptest.NewRecorder()

	e.handleDashboard(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	if !strings.Contains(body, "top_speed-sector1") {
		t.Errorf("dashboard body missing tracker name:\n%s", body)
	}
}

func TestAttachDashboardRegistersRoute(t *testing.T) {
	e := New(nil, nil, time.Second)
	mux := http.NewServeMux()
	e.AttachDashboard(mux)

	req := testutil.NewTestRequest(http.MethodGet, "/evaluator/dashboard")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
}
