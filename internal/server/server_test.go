package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exploration-planner/internal/config"
	"exploration-planner/internal/geometry"
)

const testMap = `#########
#S..#...#
#...#...#
#.......#
#...#..G#
#########
`

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loadedServer(t *testing.T) (*Server, http.Handler, MapResponse) {
	t.Helper()
	s := New(nil)
	h := s.Handler()
	rec := do(t, h, http.MethodPost, "/map", MapRequest{ASCII: testMap})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return s, h, resp
}

func TestHealth(t *testing.T) {
	h := New(nil).Handler()
	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hasMap":false`)

	_, h, _ = loadedServer(t)
	rec = do(t, h, http.MethodGet, "/health", nil)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
	assert.Contains(t, rec.Body.String(), `"width":9`)
}

func TestCORS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.CORSOrigin = "http://localhost:3000"
	h := New(cfg).Handler()

	rec := do(t, h, http.MethodOptions, "/route", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMap(t *testing.T) {
	_, h, resp := loadedServer(t)
	assert.True(t, resp.Success)
	assert.Equal(t, 9, resp.Width)
	assert.Equal(t, 6, resp.Height)
	require.NotNil(t, resp.Start)
	require.NotNil(t, resp.Goal)
	assert.Equal(t, Point{X: 1, Y: 4}, *resp.Start)
	assert.Equal(t, Point{X: 7, Y: 1}, *resp.Goal)

	rec := do(t, h, http.MethodPost, "/map", MapRequest{ASCII: testMap})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/map", MapRequest{Maze: &MazeRequest{Cols: 3, Rows: 3, PathWidth: 2, WallWidth: 1, Seed: 1}, Force: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"width":10`)

	rec = do(t, h, http.MethodPost, "/map", MapRequest{ASCII: "#.\n#", Force: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/map", MapRequest{Force: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/map", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestObstacles(t *testing.T) {
	h := New(nil).Handler()
	rec := do(t, h, http.MethodGet, "/obstacles", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, h, _ = loadedServer(t)
	rec = do(t, h, http.MethodGet, "/obstacles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	set, err := geometry.ReadGeoJSON(rec.Body.Bytes())
	require.NoError(t, err)
	assert.NotEmpty(t, set.Boundary)
}

func TestRoute(t *testing.T) {
	_, h, resp := loadedServer(t)

	rec := do(t, h, http.MethodPost, "/route", RouteRequest{Start: *resp.Start, End: *resp.Goal})
	require.Equal(t, http.StatusOK, rec.Code)
	var route RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &route))
	assert.True(t, route.Success)
	assert.Equal(t, *resp.Start, route.Path[0])
	assert.Equal(t, *resp.Goal, route.Path[len(route.Path)-1])
	assert.Greater(t, route.Distance, 6.0)

	rec = do(t, h, http.MethodPost, "/route", RouteRequest{Start: *resp.Start, End: Point{X: 0, Y: 0}})
	require.Equal(t, http.StatusOK, rec.Code)
	route = RouteResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &route))
	assert.False(t, route.Success)
	assert.NotEmpty(t, route.Message)

	rec = do(t, h, http.MethodPost, "/route", RouteRequest{Start: Point{X: 50, Y: 50}, End: *resp.Goal})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoute_NoMap(t *testing.T) {
	h := New(nil).Handler()
	rec := do(t, h, http.MethodPost, "/route", RouteRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlan(t *testing.T) {
	h := New(nil).Handler()
	body := `{
		"subgoals": [
			{"id": 3, "prob_feasible": 0.1, "delta_success_cost": 0, "exploration_cost": 1},
			{"id": 1, "prob_feasible": 0.9, "delta_success_cost": 0, "exploration_cost": 5},
			{"id": 2, "prob_feasible": 0.5, "delta_success_cost": 0, "exploration_cost": 2}
		],
		"costs": {"1": 1, "2": 2, "3": 0.5},
		"backup": 10
	}`
	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []int{1, 2, 3}, resp.Plan.Order)
	assert.InDelta(t, 1.87+0.045*10, resp.Plan.ExpectedCost, 1e-9)
}

func TestPlan_InvalidSubgoal(t *testing.T) {
	h := New(nil).Handler()
	body := `{"subgoals": [{"id": 1, "prob_feasible": 1.5}], "costs": {"1": 1}}`
	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlan_NegativeBackup(t *testing.T) {
	h := New(nil).Handler()
	body := `{"subgoals": [{"id": 1, "prob_feasible": 0.5}], "costs": {"1": 1}, "backup": -5}`
	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "backup")
}

func TestExplore(t *testing.T) {
	_, h, resp := loadedServer(t)

	rec := do(t, h, http.MethodPost, "/explore", ExploreRequest{Start: resp.Start, Goal: resp.Goal})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out ExploreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success, out.Message)
	assert.Equal(t, "goal_reached", out.State)
	require.NotNil(t, out.Trace)
	assert.NotEmpty(t, out.Trace.SessionID)
	assert.Greater(t, out.Distance, 6.0)
}

func TestExplore_SampledPoses(t *testing.T) {
	_, h, _ := loadedServer(t)

	rec := do(t, h, http.MethodPost, "/explore", ExploreRequest{Seed: 9, Estimator: "heuristic"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out ExploreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.Trace)
	assert.NotEmpty(t, out.Trace.Poses)
}

func TestExplore_BlockedStart(t *testing.T) {
	_, h, resp := loadedServer(t)
	rec := do(t, h, http.MethodPost, "/explore", ExploreRequest{Start: &Point{X: 0, Y: 0}, Goal: resp.Goal})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
