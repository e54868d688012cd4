package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"go.uber.org/zap"

	"mapred/engine/internal/protocol"
	"mapred/engine/pkg/logger"
	"mapred/engine/pkg/mapreduce"
	"mapred/engine/pkg/types"
)

// Config holds the worker's settings.
type Config struct {
	// Address and Port locate the master.
	Address string
	Port    int
	// Secret is the shared secret both ends prove during the handshake.
	Secret string
	// Mapper and Reducer name the implementations to resolve from the
	// registry.
	Mapper  string
	Reducer string
}

// Worker is one worker process: a single outbound connection serving tasks
// until the master disconnects it.
type Worker struct {
	cfg  *Config
	exec *Executor

	conn net.Conn
	r    *protocol.Reader
	w    *protocol.Writer

	// nonce is this side's outstanding counter-challenge; authed flips
	// only when the master's proof against it verifies.
	nonce  string
	authed bool
}

// New creates a worker resolving its mapper and reducer from the default
// registry.
func New(cfg *Config) *Worker {
	return &Worker{
		cfg:  cfg,
		exec: NewExecutor(mapreduce.DefaultRegistry, cfg.Mapper, cfg.Reducer),
	}
}

// Run connects to the master and serves tasks until the connection closes
// or ctx is cancelled. The worker never speaks first: it waits for the
// master's challenge and only issues its own as the second leg of the
// handshake.
func (wk *Worker) Run(ctx context.Context) error {
	addr := net.JoinHostPort(wk.cfg.Address, strconv.Itoa(wk.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to master at %s: %w", addr, err)
	}
	wk.conn = conn
	wk.r = protocol.NewReader(conn)
	wk.w = protocol.NewWriter(conn)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logger.Info("connected to master", zap.String("addr", addr))

	for {
		f, err := wk.r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Info("master closed the connection")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if err := wk.handle(f); err != nil {
			if errors.Is(err, errDisconnected) {
				logger.Info("disconnected by master")
				return nil
			}
			return err
		}
	}
}

// errDisconnected signals an orderly disconnect instruction.
var errDisconnected = errors.New("disconnected")

func (wk *Worker) handle(f *protocol.Frame) error {
	if !wk.authed {
		return wk.handleUnauthed(f)
	}

	switch f.Command {
	case protocol.CmdMap:
		task, err := protocol.DecodePayload[types.MapTask](f)
		if err != nil {
			return err
		}
		logger.Info("mapping", zap.String("key", task.Key))
		return wk.w.SendPayload(protocol.CmdMapDone, wk.exec.ExecuteMap(task))

	case protocol.CmdReduce:
		task, err := protocol.DecodePayload[types.ReduceTask](f)
		if err != nil {
			return err
		}
		logger.Info("reducing", zap.String("key", task.Key))
		return wk.w.SendPayload(protocol.CmdReduceDone, wk.exec.ExecuteReduce(task))

	case protocol.CmdChallenge:
		return wk.respondToChallenge(f.Arg)

	case protocol.CmdDisconnect:
		return errDisconnected

	default:
		logger.Error("unknown command received", zap.String("command", string(f.Command)))
		return fmt.Errorf("unknown command %q", f.Command)
	}
}

// handleUnauthed recognizes only the handshake commands; anything else
// closes the connection.
func (wk *Worker) handleUnauthed(f *protocol.Frame) error {
	switch f.Command {
	case protocol.CmdChallenge:
		return wk.respondToChallenge(f.Arg)

	case protocol.CmdAuth:
		if !protocol.VerifyProof(wk.cfg.Secret, wk.nonce, f.Arg) {
			logger.Warn("master failed authentication")
			return errors.New("master failed authentication")
		}
		wk.nonce = ""
		wk.authed = true
		logger.Info("master authenticated")
		return nil

	case protocol.CmdDisconnect:
		return errDisconnected

	default:
		logger.Error("unknown command before authentication", zap.String("command", string(f.Command)))
		return fmt.Errorf("unknown command %q before authentication", f.Command)
	}
}

// respondToChallenge proves the secret against the master's nonce and, if
// this side has not challenged yet, immediately issues its own
// counter-challenge.
func (wk *Worker) respondToChallenge(nonce string) error {
	if err := wk.w.SendArg(protocol.CmdAuth, protocol.Proof(wk.cfg.Secret, nonce)); err != nil {
		return err
	}
	if !wk.authed && wk.nonce == "" {
		counter, err := protocol.NewNonce()
		if err != nil {
			return err
		}
		wk.nonce = counter
		return wk.w.SendArg(protocol.CmdChallenge, counter)
	}
	return nil
}
