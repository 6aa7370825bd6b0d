package alert

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/exGeni/free-proxy-telegram-bot/src/ingest"
	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
)

// Prometheus AlertManager APIv2 methods:
// https://petstore.swagger.io/?url=https://raw.githubusercontent.com/prometheus/alertmanager/master/api/v2/openapi.yaml

const serviceName = "free-proxy-bot"

// StartsAt and EndsAt date format - 2020-09-16T15:15:56.070Z
type alert struct {
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	Annotations  map[string]string `json:"annotations"`
	Labels       map[string]string `json:"labels"`
	GeneratorURL string            `json:"generatorURL,omitempty"`
}

// PromAlertManager raises an alert once the feed has failed Threshold
// refreshes in a row, and again after every further Threshold failures.
type PromAlertManager struct {
	Url       string
	ApiPath   string
	Threshold int

	client      *fasthttp.Client
	mu          sync.Mutex
	consecutive int
}

// NewPromAlertManager returns nil for an empty url, which disables alerting.
func NewPromAlertManager(url string, threshold int) *PromAlertManager {
	if url == "" {
		return nil
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &PromAlertManager{
		Url:       url,
		ApiPath:   "/api/v2",
		Threshold: threshold,
		client:    &fasthttp.Client{Name: serviceName},
	}
}

// ObserveReport is meant as the scheduler's OnReport hook.
func (am *PromAlertManager) ObserveReport(r ingest.Report) {
	if am == nil {
		return
	}
	am.mu.Lock()
	if r.FetchErr == nil {
		am.consecutive = 0
		am.mu.Unlock()
		return
	}
	am.consecutive++
	failures := am.consecutive
	am.mu.Unlock()

	if failures%am.Threshold != 0 {
		return
	}
	msg := fmt.Sprintf("Proxy feed failed %d times in a row: %v", failures, r.FetchErr)
	if err := am.Notify(msg, "ingest"); err != nil {
		l := logger.WithComponent("Alert")
		l.Error().Err(err).Msg("Could not send alert.")
	}
}

func (am *PromAlertManager) Notify(message string, source string) error {
	now := time.Now().UTC()
	requestParams := []alert{
		{
			StartsAt: now.Format(time.RFC3339),
			EndsAt:   now.Add(5 * time.Minute).Format(time.RFC3339),
			Annotations: map[string]string{
				"message": message,
			},
			Labels: map[string]string{
				"alertname": "ProxyFeedDown",
				"service":   serviceName,
				"source":    source,
			},
		},
	}

	body, err := json.Marshal(requestParams)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(am.Url + am.ApiPath + "/alerts")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := am.client.DoTimeout(req, resp, 10*time.Second); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("alertmanager answered %d", resp.StatusCode())
	}

	l := logger.WithComponent("Alert")
	l.Info().Str("source", source).Msg("Alert sent.")
	return nil
}
