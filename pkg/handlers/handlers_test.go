package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arnavshah/compliance-api-go/pkg/auth"
	"github.com/arnavshah/compliance-api-go/pkg/compliance"
	"github.com/arnavshah/compliance-api-go/pkg/database"
	"github.com/arnavshah/compliance-api-go/pkg/fetcher"
	"github.com/arnavshah/compliance-api-go/pkg/models"
	"github.com/arnavshah/compliance-api-go/pkg/normalizer"
	"github.com/arnavshah/compliance-api-go/pkg/report"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const marchFirst = `{
	"a": {"nombre_puesto": "Post A", "unidad_negocio_id": 1,
		"day": {"colaborador": {"placa": "c1", "nombre": "Ana", "foto_url": "http://img/ana.jpg"}},
		"night": {"colaborador": "c2"},
		"shiftB": {"colaborador": {"placa": "c3", "nombre": "Luis"}}},
	"b": {"nombre_puesto": "Post B", "unidad_negocio_id": 1,
		"day": {"colaborador": {"placa": "c4", "nombre": "Eva"}},
		"night": {"colaborador": null}}
}`

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	apiKey   string
	upstream *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("fecha") {
		case "2024-03-01":
			fmt.Fprint(w, marchFirst)
		case "2024-03-03":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(upstream.Close)

	e := newTestEnvWith(t, fetcher.NewClient(upstream.URL))
	e.upstream = upstream
	return e
}

// newTestEnvWith builds the router over an arbitrary range fetcher
func newTestEnvWith(t *testing.T, f fetcher.RangeFetcher) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.Configure("test-jwt", "test-master")

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.Open("", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, auth.EnsureAdminExists(db, "admin", "pw"))
	require.NoError(t, db.Create(&database.BusinessUnit{ID: "1", Name: "Norte", ZoneID: "z1"}).Error)
	require.NoError(t, db.Create(&database.BusinessUnit{ID: "2", Name: "Sur", ZoneID: "z1"}).Error)

	// Concurrent requests share one connection to the in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	h := &Handler{
		DB:           db,
		Loader:       fetcher.NewLoader(f),
		Targets:      compliance.NewTargets(3, nil),
		MaxRangeDays: 31,
	}
	return &testEnv{
		db:     db,
		router: NewRouter(h),
		apiKey: auth.GenerateHMACKey("tester"),
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/admin/login", "", map[string]string{"username": "admin", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

type zoneResponse struct {
	Compliance   models.ZoneCompliance `json:"compliance"`
	Chart        []models.ChartPoint   `json:"chart"`
	NonCompliant []models.ChartPoint   `json:"non_compliant"`
	ViewSettings models.ViewSettings   `json:"view_settings"`
}

func TestAPIKeyRequired(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-03-01", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-03-01", "tester.deadbeef", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)
}

func TestZoneCompliance(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-03-01&to=2024-03-01&zone=z1", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp zoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	z := resp.Compliance
	require.Len(t, z.Posts, 2)
	assert.Equal(t, 100, z.Posts[0].Percentage)
	assert.Equal(t, 33, z.Posts[1].Percentage)
	assert.Equal(t, 67, z.Overall)
	assert.Equal(t, map[string]int{"2024-03-01": 67}, z.NonCompliantDays)
	require.Len(t, resp.NonCompliant, 1)
	assert.Equal(t, "2024-03-01", resp.NonCompliant[0].ID)
	assert.Len(t, resp.Chart, 2)
}

func TestZoneCompliance_FailedDateDegrades(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-03-01&to=2024-03-03", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp zoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	z := resp.Compliance
	assert.Equal(t, []string{"2024-03-03"}, z.FailedDates)
	assert.Equal(t, 3, z.Days)
	assert.Equal(t, 0, z.Daily["2024-03-02"])
	assert.Equal(t, 0, z.Daily["2024-03-03"])
	for _, p := range z.Posts {
		assert.LessOrEqual(t, p.Percentage, 100)
	}
}

func TestZoneCompliance_TargetOverride(t *testing.T) {
	e := newTestEnv(t)
	token := e.adminToken(t)

	w := e.do(t, http.MethodPost, "/admin/targets", token, map[string]any{"post_name": "Post B", "shifts_expected": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/admin/targets", token, map[string]any{"post_name": "Post B", "shifts_expected": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-03-01", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp zoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp.Compliance.Posts[1].Percentage)
	assert.Equal(t, 100, resp.Compliance.Overall)
	assert.Empty(t, resp.Compliance.NonCompliantDays)
}

func TestInvalidQuery(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-03-05&to=2024-03-01", e.apiKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/compliance/units?date=03/01/2024", e.apiKey, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verr))
	assert.Contains(t, verr.Fields, "Date")

	w = e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-01-01&to=2024-03-01", e.apiKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnitCoverage(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/compliance/units?date=2024-03-01&zone=z1", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Units []models.UnitCoverage `json:"units"`
		Chart []models.ChartPoint   `json:"chart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Units, 2)
	assert.Equal(t, "Norte", resp.Units[0].UnitName)
	assert.Equal(t, 4, resp.Units[0].FilledSlots)
	assert.Equal(t, 6, resp.Units[0].PossibleSlots)
	assert.Equal(t, 67, resp.Units[0].Percentage)
	assert.Equal(t, "Sur", resp.Units[1].UnitName)
	assert.Equal(t, 0, resp.Units[1].Percentage)
	require.Len(t, resp.Chart, 2)
	assert.Equal(t, "#ef4444", resp.Chart[1].Color)
}

func TestPersonnelAndSettings(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/settings", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var s models.ViewSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, models.DefaultViewSettings(), s)

	w = e.do(t, http.MethodPut, "/api/settings", e.apiKey, map[string]any{"view_mode": "carousel"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/settings", e.apiKey, map[string]any{"view_mode": "grid", "show_photos": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/compliance/personnel?date=2024-03-01", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		ViewMode string                 `json:"view_mode"`
		Cards    []models.PersonnelCard `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "grid", resp.ViewMode)
	require.Len(t, resp.Cards, 5)
	for _, c := range resp.Cards {
		assert.Empty(t, c.PhotoURL)
	}
}

func TestReportDownload(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/compliance/report.xlsx?from=2024-03-01&to=2024-03-02&zone=z1", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, report.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestUsageRecorded(t *testing.T) {
	e := newTestEnv(t)

	for i := 0; i < 2; i++ {
		w := e.do(t, http.MethodGet, "/api/compliance/personnel?date=2024-03-01", e.apiKey, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := e.do(t, http.MethodGet, "/api/usage", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		KeyName string `json:"key_name"`
		Totals  struct {
			Requests int `json:"requests"`
			Posts    int `json:"posts"`
			Records  int `json:"records"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tester", resp.KeyName)
	assert.Equal(t, 2, resp.Totals.Requests)
	assert.Equal(t, 4, resp.Totals.Posts)
	assert.Equal(t, 10, resp.Totals.Records)
}

func TestAdminUnitsAndKeys(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/admin/units", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := e.adminToken(t)
	w = e.do(t, http.MethodPost, "/admin/posts", token, map[string]any{"id": "x", "name": "Gate", "business_unit_id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/admin/posts", token, map[string]any{"id": "a", "name": "Post A", "business_unit_id": "1", "active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/admin/units?zone=z1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var units struct {
		Units []database.BusinessUnit `json:"units"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &units))
	require.Len(t, units.Units, 2)
	require.Len(t, units.Units[0].Posts, 1)
	assert.False(t, units.Units[0].Posts[0].Active)

	w = e.do(t, http.MethodDelete, "/admin/units/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/admin/keys", token, map[string]any{"name": "dashboard"})
	require.Equal(t, http.StatusOK, w.Code)
	var key struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &key))
	w = e.do(t, http.MethodGet, "/api/settings", key.Key, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/admin/keys", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), key.Key)
}

func TestValidateReport(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/validate?date=2024-03-01", bytes.NewBufferString(marchFirst))
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid bool `json:"valid"`
		Stats struct {
			PostCount     int `json:"post_count"`
			RecordCount   int `json:"record_count"`
			AssignedCount int `json:"assigned_count"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, 2, resp.Stats.PostCount)
	assert.Equal(t, 5, resp.Stats.RecordCount)
	assert.Equal(t, 4, resp.Stats.AssignedCount)
}

func TestHealthAndRoot(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	w = e.do(t, http.MethodGet, "/admin", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Shift Compliance Admin")
}

// gatedFetcher blocks each fetch until release is closed or its context ends
type gatedFetcher struct {
	started chan string
	release chan struct{}
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan string, 4), release: make(chan struct{})}
}

func (g *gatedFetcher) FetchRange(ctx context.Context, rng models.DateRange, q fetcher.Query) (fetcher.RangeResult, error) {
	g.started <- q.Zone
	select {
	case <-g.release:
		return fetcher.RangeResult{Reports: map[string]normalizer.RawReport{}}, nil
	case <-ctx.Done():
		return fetcher.RangeResult{}, ctx.Err()
	}
}

func (e *testEnv) doAsync(t *testing.T, path string, header http.Header) <-chan *httptest.ResponseRecorder {
	out := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
		for k, v := range header {
			req.Header[k] = v
		}
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		out <- w
	}()
	return out
}

func waitResponse(t *testing.T, ch <-chan *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(5 * time.Second):
		t.Fatal("request did not finish")
		return nil
	}
}

func waitStarted(t *testing.T, g *gatedFetcher) string {
	t.Helper()
	select {
	case zone := <-g.started:
		return zone
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not start")
		return ""
	}
}

func TestSupersede_SameSession(t *testing.T) {
	g := newGatedFetcher()
	e := newTestEnvWith(t, g)
	session := http.Header{"X-Client-Session": []string{"tab-1"}}

	first := e.doAsync(t, "/api/compliance/zone?from=2024-03-01&zone=z1", session)
	assert.Equal(t, "z1", waitStarted(t, g))
	second := e.doAsync(t, "/api/compliance/zone?from=2024-03-01&zone=z2", session)

	w := waitResponse(t, first)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)

	assert.Equal(t, "z2", waitStarted(t, g))
	close(g.release)
	assert.Equal(t, http.StatusOK, waitResponse(t, second).Code)
}

func TestSupersede_SessionQueryParam(t *testing.T) {
	g := newGatedFetcher()
	e := newTestEnvWith(t, g)

	first := e.doAsync(t, "/api/compliance/zone?from=2024-03-01&zone=z1&session=a", nil)
	waitStarted(t, g)
	other := e.doAsync(t, "/api/compliance/zone?from=2024-03-01&zone=z2&session=b", nil)
	waitStarted(t, g)
	third := e.doAsync(t, "/api/compliance/zone?from=2024-03-01&zone=z3&session=a", nil)

	assert.Equal(t, http.StatusConflict, waitResponse(t, first).Code)
	waitStarted(t, g)
	close(g.release)
	assert.Equal(t, http.StatusOK, waitResponse(t, other).Code)
	assert.Equal(t, http.StatusOK, waitResponse(t, third).Code)
}

func TestSupersede_NoSessionRunsIndependently(t *testing.T) {
	g := newGatedFetcher()
	e := newTestEnvWith(t, g)

	first := e.doAsync(t, "/api/compliance/zone?from=2024-03-01&zone=z1", nil)
	waitStarted(t, g)
	second := e.doAsync(t, "/api/compliance/zone?from=2024-03-01&zone=z2", nil)
	waitStarted(t, g)

	close(g.release)
	assert.Equal(t, http.StatusOK, waitResponse(t, first).Code)
	assert.Equal(t, http.StatusOK, waitResponse(t, second).Code)
}

func TestSupersede_InvalidSession(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/compliance/zone?from=2024-03-01&session="+strings.Repeat("s", 65), e.apiKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// failingFetcher returns err from every fetch
type failingFetcher struct {
	err error
}

func (f failingFetcher) FetchRange(context.Context, models.DateRange, fetcher.Query) (fetcher.RangeResult, error) {
	return fetcher.RangeResult{}, f.err
}

func TestLoadErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"superseded", fetcher.ErrSuperseded, http.StatusConflict},
		{"cancelled", context.Canceled, http.StatusGatewayTimeout},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"upstream", errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnvWith(t, failingFetcher{err: tt.err})

			for _, path := range []string{
				"/api/compliance/zone?from=2024-03-01",
				"/api/compliance/units?date=2024-03-01",
				"/api/compliance/report.xlsx?from=2024-03-01",
			} {
				w := e.do(t, http.MethodGet, path, e.apiKey, nil)
				assert.Equal(t, tt.status, w.Code, path)

				var body struct {
					Detail string `json:"detail"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), path)
				assert.NotEmpty(t, body.Detail, path)
				assert.NotContains(t, body.Detail, "connection reset", path)
			}
		})
	}
}

func TestAPIKeyMiddleware_TouchesLastUsed(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/settings", e.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var key database.APIKey
	require.NoError(t, e.db.Where("name = ?", "tester").First(&key).Error)
	assert.NotNil(t, key.LastUsed)
}

func TestAPIKeyMiddleware_LastUsedFailureIsNotFatal(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.db.Callback().Update().Before("gorm:update").Register("fail_updates", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("read-only"))
	}))

	w := e.do(t, http.MethodGet, "/api/settings", e.apiKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
