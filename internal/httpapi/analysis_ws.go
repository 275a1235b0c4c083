package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/analysis"
	"github.com/intellibus/insights/internal/async"
	"github.com/intellibus/insights/internal/report"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Job kinds accepted on the analysis stream.
const (
	jobSentiment    = "sentiment"
	jobChatAnalysis = "chat_analysis"
	jobReport       = "report"
)

// wsJob is a unit of work sent by the client.
type wsJob struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// wsReply is sent back once a job completes, in completion order.
type wsReply struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// analysisSession runs the jobs of a single websocket connection.
type analysisSession struct {
	router *Router
	log    *logrus.Entry

	conn   *websocket.Conn
	connMu sync.Mutex

	jobs sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *Router) handleAnalysisWS(w http.ResponseWriter, req *http.Request) {
	if r.registry.IsDraining() {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.requestLog(req).WithError(err).Warn("analysis_ws: upgrade failed")
		return
	}
	conn.SetReadLimit(maxBodyBytes)

	ctx, cancel := context.WithCancel(context.WithoutCancel(req.Context()))
	s := &analysisSession{
		router: r,
		log:    r.requestLog(req).WithField("component", "analysis_ws"),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}

	s.log.Info("analysis_ws: connection established")
	s.run()
}

func (s *analysisSession) run() {
	defer s.cleanup()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("analysis_ws: connection closed")
			} else {
				s.log.WithError(err).Warn("analysis_ws: read error")
			}
			return
		}

		var job wsJob
		if err := json.Unmarshal(msg, &job); err != nil {
			s.send(wsReply{Error: "invalid job: " + err.Error()})
			continue
		}
		s.dispatch(job)
	}
}

// dispatch validates a job and starts it. Invalid jobs are answered immediately.
func (s *analysisSession) dispatch(job wsJob) {
	task, err := s.task(job)
	if err != nil {
		s.send(wsReply{ID: job.ID, Kind: job.Kind, Error: err.Error()})
		return
	}
	if !s.router.registry.Add() {
		s.send(wsReply{ID: job.ID, Kind: job.Kind, Error: "server is shutting down"})
		return
	}

	f := async.Run(func() any {
		defer s.router.registry.Done()
		return task(s.ctx)
	})

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		result, err := f.Await(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.WithError(err).WithField("job_id", job.ID).Error("analysis_ws: job failed")
			s.send(wsReply{ID: job.ID, Kind: job.Kind, Error: "internal error"})
			return
		}
		s.send(wsReply{ID: job.ID, Kind: job.Kind, Result: result})
	}()
}

// task decodes and validates the payload of job and returns the call to run.
func (s *analysisSession) task(job wsJob) (func(context.Context) any, error) {
	r := s.router
	switch job.Kind {
	case jobSentiment:
		var req analysis.SentimentRequest
		if err := s.decode(job.Payload, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context) any { return r.svc.Sentiment.Analyze(ctx, req) }, nil

	case jobChatAnalysis:
		var req analysis.ChatRequest
		if err := s.decode(job.Payload, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context) any { return r.svc.Chat.Analyze(ctx, req) }, nil

	case jobReport:
		var req report.Request
		if err := s.decode(job.Payload, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context) any { return r.svc.Reports.Generate(ctx, req) }, nil

	default:
		return nil, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (s *analysisSession) decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := s.router.validate.Struct(v); err != nil {
		return fmt.Errorf("%s", validationMessage(err))
	}
	return nil
}

func (s *analysisSession) send(reply wsReply) {
	s.connMu.Lock()
	err := s.conn.WriteJSON(reply)
	s.connMu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("job_id", reply.ID).Warn("analysis_ws: write failed")
	}
}

func (s *analysisSession) cleanup() {
	s.cancel()
	s.jobs.Wait()

	s.connMu.Lock()
	s.conn.Close()
	s.connMu.Unlock()

	s.log.Info("analysis_ws: session closed")
}
