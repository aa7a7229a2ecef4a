package web

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinal-lookup/internal/arcgis"
	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/controller"
	"github.com/cardinal-lookup/internal/engine"
	"github.com/cardinal-lookup/internal/parser"
	"github.com/cardinal-lookup/internal/store"
	"github.com/cardinal-lookup/internal/web/middleware"
)

type streetLookup struct{}

func (streetLookup) Query(ctx context.Context, q parser.QueryTuple, strict bool) ([]arcgis.Attributes, error) {
	if q.StreetName == "Nowhere" {
		return nil, nil
	}
	return []arcgis.Attributes{{
		OwnerName:      "SMITH, JANE",
		OccupancyFlag:  "H",
		PremisesNumber: arcgis.Text(q.HouseNumber),
		PremisesName:   arcgis.Text(q.StreetName),
		PremisesType:   "ST",
		PremisesZip:    "20772",
		PremisesCity:   "UPPER MARLBORO",
	}}, nil
}

func newTestServer(t *testing.T, auth bool) (*Server, store.Store) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Auth.Enabled = auth
	mem := store.NewMemory()
	s := NewServer(cfg, Deps{Runner: engine.NewRunner(nil, streetLookup{}, nil), Store: mem, StoreName: "memory"})
	t.Cleanup(s.Close)
	return s, mem
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.UserHeader, user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeReport(t *testing.T, rr *httptest.ResponseRecorder) controller.Report {
	t.Helper()
	var rep controller.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	return rep
}

func lookupBody(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d Oak", i+1)
	}
	data, _ := json.Marshal(map[string]interface{}{"text": strings.Join(lines, "\n")})
	return string(data)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, true)

	rr := do(t, s.Handler(), "GET", "/api/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])
}

func TestLookupSaveLoadDeleteFlow(t *testing.T) {
	s, mem := newTestServer(t, true)
	h := s.Handler()

	rr := do(t, h, "POST", "/api/lookup", "alice", lookupBody(7))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var lookup struct {
		Stats  engine.Stats      `json:"stats"`
		Report controller.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lookup))
	assert.Equal(t, 7, lookup.Stats.Matched)
	require.Len(t, lookup.Report.Records, 7)
	assert.Equal(t, "Jane Smith", lookup.Report.Records[0].Name)
	assert.Equal(t, "1 Oak St", lookup.Report.Records[0].Address)
	assert.Equal(t, "Upper Marlboro", lookup.Report.Records[0].City)

	rr = do(t, h, "POST", "/api/report/groups/1/strike", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"index":1,"struck":true}`, rr.Body.String())

	rr = do(t, h, "POST", "/api/report/save", "alice", `{"name":"Oak street"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rep := decodeReport(t, rr)
	require.NotEmpty(t, rep.ActiveID)
	assert.Equal(t, controller.LabelUpdate, rep.SaveLabel)

	saved, err := mem.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Oak street", saved[0].Name)
	assert.Equal(t, []bool{false, true}, saved[0].GroupStrikes)

	// list is fed by the store subscription
	require.Eventually(t, func() bool {
		var list []batch.Batch
		rr := do(t, h, "GET", "/api/batches", "alice", "")
		return json.Unmarshal(rr.Body.Bytes(), &list) == nil && len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// a new run clears the active batch; loading brings it back
	rr = do(t, h, "POST", "/api/lookup", "alice", lookupBody(2))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, "POST", "/api/batches/0/load", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rep = decodeReport(t, rr)
	assert.Len(t, rep.Records, 7)
	assert.Equal(t, []bool{false, true}, rep.Strikes)
	assert.Equal(t, saved[0].ID, rep.ActiveID)

	rr = do(t, h, "DELETE", "/api/batches/"+saved[0].ID, "alice", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, "DELETE", "/api/batches/"+saved[0].ID, "alice", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, "GET", "/api/report", "alice", "")
	assert.Empty(t, decodeReport(t, rr).ActiveID)
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/lookup", "alice", lookupBody(3)).Code)

	rep := decodeReport(t, do(t, h, "GET", "/api/report", "bob", ""))
	assert.Empty(t, rep.Records)
	assert.Equal(t, controller.LabelSave, rep.SaveLabel)
}

func TestGuestCannotSave(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/lookup", "", lookupBody(1)).Code)

	rr := do(t, h, "POST", "/api/report/save", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), controller.ErrNotSignedIn.Error())
}

func TestAuthDisabledUsesLocalUser(t *testing.T) {
	s, mem := newTestServer(t, false)
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/lookup", "", lookupBody(1)).Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/report/save", "", "").Code)

	saved, err := mem.List(context.Background(), middleware.LocalUser)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.True(t, strings.HasPrefix(saved[0].Name, "Batch "))
}

func TestBadRequests(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "invalid lookup json", method: "POST", path: "/api/lookup", body: "{", want: http.StatusBadRequest},
		{name: "strike with no report", method: "POST", path: "/api/report/groups/0/strike", want: http.StatusNotFound},
		{name: "strike non numeric", method: "POST", path: "/api/report/groups/x/strike", want: http.StatusNotFound},
		{name: "load out of range", method: "POST", path: "/api/batches/3/load", want: http.StatusNotFound},
		{name: "invalid save json", method: "POST", path: "/api/report/save", body: "[", want: http.StatusBadRequest},
		{name: "wrong method", method: "GET", path: "/api/lookup", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, "carol", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestEmptyLookupLeavesReport(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/lookup", "dave", lookupBody(2)).Code)
	rr := do(t, h, "POST", "/api/lookup", "dave", `{"text":"   "}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rep := decodeReport(t, do(t, h, "GET", "/api/report", "dave", ""))
	assert.Len(t, rep.Records, 2)
}

func TestExportCSV(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/lookup", "erin", lookupBody(6)).Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/report/groups/1/strike", "erin", "").Code)

	rr := do(t, h, "GET", "/api/report/export.csv", "erin", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"name", "address", "city", "state", "zip", "status", "group", "struck"}, rows[0])
	assert.Equal(t, []string{"Jane Smith", "6 Oak St", "Upper Marlboro", "MD", "20772", "Active", "2", "true"}, rows[6])
}

func TestExportDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features.ExportEnabled = false
	s := NewServer(cfg, Deps{Runner: engine.NewRunner(nil, streetLookup{}, nil), Store: store.NewMemory()})
	defer s.Close()

	rr := do(t, s.Handler(), "GET", "/api/report/export.csv", "erin", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLookupEventStream(t *testing.T) {
	s, _ := newTestServer(t, true)

	req := httptest.NewRequest("POST", "/api/lookup", strings.NewReader(`{"text":"1 Oak\n2 Nowhere\n3 Oak"}`))
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(middleware.UserHeader, "frank")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event: progress\n"))
	assert.Contains(t, body, `"percent":100`)
	assert.Contains(t, body, "event: report\n")
	assert.Less(t, strings.LastIndex(body, "event: progress"), strings.Index(body, "event: report"))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, true)

	rr := do(t, s.Handler(), "OPTIONS", "/api/lookup", "", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBatchesStream(t *testing.T) {
	s, mem := newTestServer(t, true)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/batches/stream", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.UserHeader, "gina")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "event: ") {
				events <- strings.TrimPrefix(sc.Text(), "event: ")
			}
		}
		close(events)
	}()

	next := func() string {
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("no event")
			return ""
		}
	}

	assert.Equal(t, "connected", next())
	assert.Equal(t, "batches", next())

	_, err = mem.Create(context.Background(), "gina", batch.Batch{Name: "pushed", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "batches", next())
}
