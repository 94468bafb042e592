package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-certificate-orders/internal/aws"
	"github.com/imrishuroy/go-certificate-orders/internal/orders"
	"github.com/imrishuroy/go-certificate-orders/internal/registry"
)

const testAPIKey = "test-api-key"

func testRows() []registry.SearchRow {
	return []registry.SearchRow{
		{Certificate: registry.Certificate{ID: 1000, DecedentName: "SMITH, JOHN", RegisteredYear: "1990", InOut: registry.StatusIn}},
		{Certificate: registry.Certificate{ID: 1007, DecedentName: "SMITH, MARY", RegisteredYear: "1993", InOut: registry.StatusIn}},
		{Certificate: registry.Certificate{ID: 1014, DecedentName: "SMITH, JAMES", RegisteredYear: "1996", InOut: registry.StatusIn}},
		{Certificate: registry.Certificate{ID: 1021, DecedentName: "SMITH, HELEN", RegisteredYear: "2024", InOut: registry.StatusPending, Pending: 1}},
		{Certificate: registry.Certificate{ID: 1028, DecedentName: "JONES, SARAH", RegisteredYear: "1999", InOut: registry.StatusIn}},
	}
}

type testEnv struct {
	router    *gin.Engine
	store     *flakyOrderStore
	ledger    *fakeLedger
	locker    *fakeLocker
	publisher *fakePublisher
	metrics   *fakeMetrics
}

func newTestEnv(t *testing.T, regStore registry.Store) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, _ := test.NewNullLogger()
	env := &testEnv{
		store:     &flakyOrderStore{MemoryStore: orders.NewMemoryStore(50)},
		ledger:    newFakeLedger(),
		locker:    &fakeLocker{held: map[string]bool{}},
		publisher: &fakePublisher{},
		metrics:   &fakeMetrics{counts: map[string]int{}},
	}
	reg := registry.New(regStore, log, registry.WithBatchWait(time.Millisecond))
	env.router = NewRouter(RouterConfig{
		Registry: reg,
		APIKeys:  []string{testAPIKey},
		Metrics:  env.metrics,
		Logger:   log,
		Orders: OrdersConfig{
			Submitter: orders.NewSubmitter(env.store, log),
			Ledger:    env.ledger,
			Locker:    env.locker,
			Publisher: env.publisher,
		},
	})
	return env
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-API-KEY", testAPIKey)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequireAPIKey(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/death/certificates/1000", nil)
	req.Header.Set("X-API-KEY", "wrong")
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCertificate(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := env.get("/death/certificates/1007")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SMITH, MARY", decode(t, w)["decedent_name"])

	w = env.get("/death/certificates/999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCertificate_StoreFailureIsRetriable(t *testing.T) {
	env := newTestEnv(t, failingRegistryStore{})

	w := env.get("/death/certificates/1000")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
	assert.Equal(t, true, decode(t, w)["retriable"])
	assert.Equal(t, 1, env.metrics.get(aws.MetricLookupGroupFailed))
}

func TestListCertificates_PerIDOutcomes(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := env.get("/death/certificates?ids=1000,%20abc,1007,,1000")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results []lookupResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 4)
	assert.Equal(t, "found", body.Results[0].Status)
	assert.Equal(t, "not_found", body.Results[1].Status)
	assert.Equal(t, "abc", body.Results[1].ID)
	assert.Equal(t, "found", body.Results[2].Status)
	assert.Equal(t, 1000, body.Results[3].Certificate.ID)
}

func TestListCertificates_MissingIDs(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := env.get("/death/certificates?ids=,")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := env.get("/death/search?q=smith&page=2&page_size=3")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.EqualValues(t, 4, body["result_count"])
	assert.EqualValues(t, 2, body["page_count"])
	assert.EqualValues(t, 4, body["start"])
	assert.EqualValues(t, 4, body["end"])
	assert.Len(t, body["results"], 1)
}

func TestSearch_Defaults(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := env.get("/death/search?q=smith")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, defaultPageSize, body["page_size"])
}

func TestSearch_Invalid(t *testing.T) {
	env := newTestEnv(t, registry.NewFixtureStore(testRows()))

	w := env.get("/death/search?q=smith&page_size=1000")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_StoreFailure(t *testing.T) {
	env := newTestEnv(t, failingRegistryStore{})

	w := env.get("/death/search?q=smith")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
