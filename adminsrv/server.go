// Package adminsrv is the coordinator's optional, loopback-only
// introspection server: read-only /stats, /stats.msgp, and /metrics
// endpoints. It never exposes a control surface -- pause/resume/fork/
// submission are unreachable over HTTP.
package adminsrv

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/mjitcore/mjitcore/cmn/nlog"
	"github.com/mjitcore/mjitcore/unit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SnapshotFunc returns the current coordinator snapshot; bound to
// mjit.Engine.Snapshot by the caller so this package never imports mjit.
type SnapshotFunc func() unit.Snapshot

// Server is the admin HTTP server. The zero value is not usable; construct
// with New.
type Server struct {
	addr     string
	snapshot SnapshotFunc
	registry *prometheus.Registry
	server   *fasthttp.Server
}

// New creates a server bound to addr (typically a loopback address such as
// "127.0.0.1:0"), serving stats from snapshot and metrics from registry.
func New(addr string, snapshot SnapshotFunc, registry *prometheus.Registry) *Server {
	s := &Server{addr: addr, snapshot: snapshot, registry: registry}
	s.server = &fasthttp.Server{Handler: s.handle}
	return s
}

// ListenAndServe blocks serving until the listener is closed. Intended to be
// run on its own goroutine by the caller.
func (s *Server) ListenAndServe() error {
	nlog.Infoln("mjit admin server listening on", s.addr)
	return s.server.ListenAndServe(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error { return s.server.Shutdown() }

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/stats":
		s.handleStats(ctx)
	case "/stats.msgp":
		s.handleStatsMsgp(ctx)
	case "/metrics":
		s.handleMetrics(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx) {
	snap := s.snapshot()
	b, err := json.Marshal(&snap)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

func (s *Server) handleStatsMsgp(ctx *fasthttp.RequestCtx) {
	snap := s.snapshot()
	b, err := snap.MarshalMsg(nil)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/octet-stream")
	ctx.SetBody(b)
}

func (s *Server) handleMetrics(ctx *fasthttp.RequestCtx) {
	h := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	fasthttpadaptor.NewFastHTTPHandler(h)(ctx)
}
