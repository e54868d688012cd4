package master

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mapred/engine/pkg/logger"
	"mapred/engine/pkg/mapreduce"
	"mapred/engine/pkg/types"
)

// Config holds the master's settings.
type Config struct {
	// Port is the TCP port to listen on. 0 picks a free port.
	Port int
	// Secret is the shared secret both ends prove during the handshake.
	Secret string
}

// Server is the master process: it owns the dataset, accepts worker
// connections and drives them through the run via one channel each.
type Server struct {
	cfg   *Config
	tasks *TaskManager
	jobID string

	ln net.Listener
	wg sync.WaitGroup

	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	finishOnce sync.Once
}

// NewServer creates a master server.
func NewServer(cfg *Config) *Server {
	return &Server{
		cfg:   cfg,
		conns: make(map[net.Conn]struct{}),
	}
}

// Listen binds the configured port. It must be called before Run.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Run accepts worker connections and schedules the dataset over them until
// the task manager finishes, then returns the run report. Cancelling ctx
// aborts the run.
func (s *Server) Run(ctx context.Context, source mapreduce.Dataset) (*types.RunReport, error) {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return nil, err
		}
	}
	s.tasks = NewTaskManager(source)
	s.jobID = uuid.NewString()

	logger.Info("master listening",
		zap.String("addr", s.ln.Addr().String()),
		zap.String("job_id", s.jobID))

	stop := context.AfterFunc(ctx, func() {
		s.finish()
		s.closeConns()
	})
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			// The listener closes when the run finishes or the
			// context is cancelled.
			break
		}
		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			newChannel(s, conn).serve()
		}()
	}
	s.wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.tasks.Done() {
		return nil, fmt.Errorf("run ended before completion in phase %s", s.tasks.Phase())
	}

	report := s.tasks.Report(s.jobID)
	logger.Info("mapreduce done",
		zap.String("job_id", s.jobID),
		zap.Int("map_tasks", report.MapTasks),
		zap.Int("reduce_tasks", report.ReduceTasks),
		zap.Int("reissued", report.Reissued),
		zap.Int("failures", len(report.Failures)))
	return report, nil
}

// finish closes the listener once. The first channel to observe the
// finished phase calls it; remaining channels drain as their workers
// disconnect.
func (s *Server) finish() {
	s.finishOnce.Do(func() {
		if s.ln != nil {
			s.ln.Close()
		}
	})
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
