package master

import (
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"mapred/engine/internal/protocol"
	"mapred/engine/pkg/logger"
	"mapred/engine/pkg/types"
)

// errChannelClosed signals an orderly end of a channel: authentication
// failure, a disconnect command, or the run finishing.
var errChannelClosed = errors.New("channel closed")

// channel is the protocol state of one accepted worker connection. It is
// owned by its serve goroutine; nothing else touches it.
type channel struct {
	srv  *Server
	conn net.Conn
	r    *protocol.Reader
	w    *protocol.Writer
	addr string

	// nonce is the outstanding challenge sent to the worker; authed flips
	// once the worker's proof against it verifies.
	nonce  string
	authed bool
}

func newChannel(srv *Server, conn net.Conn) *channel {
	return &channel{
		srv:  srv,
		conn: conn,
		r:    protocol.NewReader(conn),
		w:    protocol.NewWriter(conn),
		addr: conn.RemoteAddr().String(),
	}
}

// serve challenges the worker and then processes its frames strictly in
// arrival order until the connection ends. Frames are handled one at a time,
// which is what makes dispatching the first task right after answering the
// worker's counter-challenge safe: the worker consumes our auth proof before
// it sees the task.
func (c *channel) serve() {
	defer func() {
		c.conn.Close()
		logger.Info("worker disconnected", zap.String("addr", c.addr))
	}()

	logger.Info("worker connected", zap.String("addr", c.addr))
	if err := c.sendChallenge(); err != nil {
		logger.Warn("send challenge failed", zap.String("addr", c.addr), zap.Error(err))
		return
	}

	for {
		f, err := c.r.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Warn("read frame failed", zap.String("addr", c.addr), zap.Error(err))
			}
			return
		}
		if err := c.handle(f); err != nil {
			if !errors.Is(err, errChannelClosed) {
				logger.Warn("channel error", zap.String("addr", c.addr), zap.Error(err))
			}
			return
		}
	}
}

func (c *channel) sendChallenge() error {
	nonce, err := protocol.NewNonce()
	if err != nil {
		return err
	}
	c.nonce = nonce
	return c.w.SendArg(protocol.CmdChallenge, nonce)
}

func (c *channel) handle(f *protocol.Frame) error {
	if !c.authed {
		return c.handleUnauthed(f)
	}

	switch f.Command {
	case protocol.CmdMapDone:
		res, err := protocol.DecodePayload[types.MapResult](f)
		if err != nil {
			return err
		}
		c.srv.tasks.MapDone(res)
		return c.startNextTask()

	case protocol.CmdReduceDone:
		res, err := protocol.DecodePayload[types.ReduceResult](f)
		if err != nil {
			return err
		}
		c.srv.tasks.ReduceDone(res)
		return c.startNextTask()

	case protocol.CmdChallenge:
		// The worker's counter-challenge. Answer it, then start the
		// scheduling loop without waiting for the worker to confirm our
		// proof: in-order delivery guarantees it processes the proof
		// first.
		if err := c.w.SendArg(protocol.CmdAuth, protocol.Proof(c.srv.cfg.Secret, f.Arg)); err != nil {
			return err
		}
		return c.startNextTask()

	case protocol.CmdDisconnect:
		return errChannelClosed

	case protocol.CmdMap, protocol.CmdReduce, protocol.CmdAuth:
		logger.Error("unexpected command received", zap.String("addr", c.addr), zap.String("command", string(f.Command)))
		return fmt.Errorf("unexpected command %q", f.Command)

	default:
		logger.Error("unknown command received", zap.String("addr", c.addr), zap.String("command", string(f.Command)))
		return fmt.Errorf("unknown command %q", f.Command)
	}
}

// handleUnauthed recognizes only the handshake commands. Everything else
// closes the connection: the channel fails closed, not open. A challenge
// from an unproven peer is answered but earns no task dispatch.
func (c *channel) handleUnauthed(f *protocol.Frame) error {
	switch f.Command {
	case protocol.CmdChallenge:
		return c.w.SendArg(protocol.CmdAuth, protocol.Proof(c.srv.cfg.Secret, f.Arg))

	case protocol.CmdAuth:
		if !protocol.VerifyProof(c.srv.cfg.Secret, c.nonce, f.Arg) {
			logger.Warn("authentication failed", zap.String("addr", c.addr))
			return errChannelClosed
		}
		c.nonce = ""
		c.authed = true
		logger.Info("worker authenticated", zap.String("addr", c.addr))
		return nil

	case protocol.CmdDisconnect:
		return errChannelClosed

	default:
		logger.Error("unknown command before authentication", zap.String("addr", c.addr), zap.String("command", string(f.Command)))
		return fmt.Errorf("unknown command %q before authentication", f.Command)
	}
}

// startNextTask asks the task manager for this channel's next assignment
// and pushes it down the connection. A disconnect assignment ends the
// channel and, the first time it is observed, stops the acceptor.
func (c *channel) startNextTask() error {
	a := c.srv.tasks.NextTask()
	switch a.Cmd {
	case protocol.CmdMap:
		return c.w.SendPayload(protocol.CmdMap, a.Map)
	case protocol.CmdReduce:
		return c.w.SendPayload(protocol.CmdReduce, a.Reduce)
	case protocol.CmdDisconnect:
		c.srv.finish()
		if err := c.w.Send(protocol.CmdDisconnect); err != nil {
			return err
		}
		return errChannelClosed
	default:
		return fmt.Errorf("task manager returned unexpected command %q", a.Cmd)
	}
}
