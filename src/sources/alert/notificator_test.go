package alert

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exGeni/free-proxy-telegram-bot/src/ingest"
)

func TestObserveReportAlertsAfterThreshold(t *testing.T) {
	var mu sync.Mutex
	var posted [][]alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/alerts", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var alerts []alert
		assert.NoError(t, json.Unmarshal(body, &alerts))
		mu.Lock()
		posted = append(posted, alerts)
		mu.Unlock()
	}))
	defer srv.Close()

	am := NewPromAlertManager(srv.URL, 2)
	failed := ingest.Report{FetchErr: errors.New("status 503")}

	am.ObserveReport(failed)
	am.ObserveReport(ingest.Report{})
	am.ObserveReport(failed)
	mu.Lock()
	assert.Empty(t, posted, "a success resets the streak")
	mu.Unlock()

	am.ObserveReport(failed)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, posted, 1)
	require.Len(t, posted[0], 1)
	assert.Equal(t, "ProxyFeedDown", posted[0][0].Labels["alertname"])
	assert.Contains(t, posted[0][0].Annotations["message"], "2 times")
}

func TestNilAlertManagerIsDisabled(t *testing.T) {
	am := NewPromAlertManager("", 3)
	assert.Nil(t, am)
	am.ObserveReport(ingest.Report{FetchErr: errors.New("x")})
}
