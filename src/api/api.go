package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/buaazp/fasthttprouter"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/exGeni/free-proxy-telegram-bot/src/healthcheck"
	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
	"github.com/exGeni/free-proxy-telegram-bot/src/metrics"
	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
	"github.com/exGeni/free-proxy-telegram-bot/src/rotation"
)

// Reply is the body of every requester-facing answer. Text is ready to be
// sent to the chat as is.
type Reply struct {
	Text     string        `json:"text"`
	Proxy    *pool.Proxy   `json:"proxy,omitempty"`
	Previous []*pool.Proxy `json:"previous,omitempty"`
}

type Options struct {
	RequesterRate  float64
	RequesterBurst int
	Checks         []healthcheck.Check
}

// Server exposes the rotation flow to the chat front end.
type Server struct {
	rotation *rotation.Service
	store    pool.Store
	checks   []healthcheck.Check
	metrics  *metrics.StatsdClient
	log      zerolog.Logger

	limit       rate.Limit
	burst       int
	limiters    map[int64]*rate.Limiter
	limitersMux sync.Mutex

	server *fasthttp.Server
}

func NewServer(svc *rotation.Service, store pool.Store, m *metrics.StatsdClient, opts Options) *Server {
	limit := rate.Inf
	if opts.RequesterRate > 0 {
		limit = rate.Limit(opts.RequesterRate)
	}
	burst := opts.RequesterBurst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		rotation: svc,
		store:    store,
		checks:   opts.Checks,
		metrics:  m,
		log:      logger.WithComponent("API"),
		limit:    limit,
		burst:    burst,
		limiters: map[int64]*rate.Limiter{},
	}
}

// Handler wires every route.
func (s *Server) Handler() fasthttp.RequestHandler {
	router := fasthttprouter.New()
	router.GET("/", s.Index)
	router.GET("/healthz", s.Healthz)
	router.GET("/help", s.Help)
	router.GET("/proxy", s.GetProxyInfo)
	router.POST("/requesters/:id/start", s.Start)
	router.GET("/requesters/:id/proxy", s.CheckProxy)
	router.POST("/requesters/:id/proxy", s.GetProxy)
	return router.Handler
}

// ListenAndServe blocks until Shutdown is called or listening fails.
func (s *Server) ListenAndServe(port string) error {
	s.server = &fasthttp.Server{
		Handler: s.Handler(),
		Name:    "free-proxy-bot",
	}
	s.log.Info().Str("port", port).Msg("Listening...")
	return s.server.ListenAndServe(port)
}

func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown()
}

func (s *Server) limiter(requesterID int64) *rate.Limiter {
	s.limitersMux.Lock()
	defer s.limitersMux.Unlock()
	l, ok := s.limiters[requesterID]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[requesterID] = l
	}
	return l
}

// requester parses the :id route value and applies the per-requester limit.
func (s *Server) requester(ctx *fasthttp.RequestCtx) (int64, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, Reply{Text: fmt.Sprintf("bad requester id %q", raw)})
		return 0, false
	}
	if !s.limiter(id).Allow() {
		s.metrics.Inc("api.throttled")
		writeJSON(ctx, fasthttp.StatusTooManyRequests, Reply{Text: throttledText})
		return 0, false
	}
	return id, true
}

func (s *Server) Start(ctx *fasthttp.RequestCtx) {
	id, ok := s.requester(ctx)
	if !ok {
		return
	}
	locale := string(ctx.QueryArgs().Peek("locale"))
	if err := s.rotation.Register(ctx, id, locale); err != nil {
		s.fail(ctx, id, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, Reply{Text: welcomeText + "\n\n" + menuText})
}

func (s *Server) CheckProxy(ctx *fasthttp.RequestCtx) {
	id, ok := s.requester(ctx)
	if !ok {
		return
	}
	holdings, err := s.rotation.Current(ctx, id)
	if err != nil {
		s.fail(ctx, id, err)
		return
	}
	if holdings.Current == nil {
		writeJSON(ctx, fasthttp.StatusOK, Reply{Text: noHoldingsText})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, Reply{
		Text:     currentText(holdings.Current, holdings.Previous),
		Proxy:    holdings.Current,
		Previous: holdings.Previous,
	})
}

func (s *Server) GetProxy(ctx *fasthttp.RequestCtx) {
	id, ok := s.requester(ctx)
	if !ok {
		return
	}
	locale := string(ctx.QueryArgs().Peek("locale"))
	s.log.Debug().Int64("requester", id).Str("locale", locale).Str("remote", ctx.RemoteIP().String()).Msg("Got GetProxy request")

	p, err := s.rotation.Rotate(ctx, id, locale)
	if errors.Is(err, pool.ErrPoolExhausted) {
		writeJSON(ctx, fasthttp.StatusOK, Reply{Text: exhaustedText})
		return
	}
	if err != nil {
		s.fail(ctx, id, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, Reply{Text: assignedText(p), Proxy: p})
}

func (s *Server) Help(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, Reply{Text: helpText})
}

// GetProxyInfo looks a proxy up by ?address=.
func (s *Server) GetProxyInfo(ctx *fasthttp.RequestCtx) {
	address := string(ctx.QueryArgs().Peek("address"))
	p, err := s.store.Get(ctx, address)
	if errors.Is(err, pool.ErrNotFound) {
		writeJSON(ctx, fasthttp.StatusNotFound, Reply{Text: fmt.Sprintf("unknown proxy %q", address)})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("proxy", address).Msg("Lookup failed.")
		writeJSON(ctx, fasthttp.StatusServiceUnavailable, Reply{Text: unavailableText})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, Reply{Text: proxyDetails(p), Proxy: p})
}

// Index is the index handler
func (s *Server) Index(ctx *fasthttp.RequestCtx) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, stats)
}

func (s *Server) Healthz(ctx *fasthttp.RequestCtx) {
	report := healthcheck.Run(ctx, s.checks...)
	status := fasthttp.StatusOK
	if !report.Healthy {
		status = fasthttp.StatusServiceUnavailable
	}
	writeJSON(ctx, status, report)
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, requesterID int64, err error) {
	s.metrics.Inc("api.unavailable")
	s.log.Error().Err(err).Int64("requester", requesterID).Str("path", string(ctx.Path())).Msg("Request failed.")
	writeJSON(ctx, fasthttp.StatusServiceUnavailable, Reply{Text: unavailableText})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	ctx.SetContentType("application/json; charset=utf8")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
	}
}
