package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

const (
	// Separator splits the command from its argument or payload length in
	// a frame header.
	Separator = ':'
	// Terminator ends every frame header.
	Terminator = '\n'

	// maxPayloadBytes bounds a declared payload length so a corrupt header
	// cannot make the reader allocate arbitrarily.
	maxPayloadBytes = 64 << 20
)

// ErrBadFrame reports a malformed frame header. It is fatal to the
// connection it occurred on.
var ErrBadFrame = errors.New("malformed frame")

// Frame is one decoded protocol message. At most one of Arg and Payload is
// set: challenge and auth frames carry an inline Arg, payload-bearing
// commands carry Payload, disconnect carries neither.
type Frame struct {
	Command Command
	Arg     string
	Payload []byte
}

// Reader decodes frames from a byte stream.
//
// The wire format is `<command>:<arg-or-length>\n`, optionally followed by
// exactly the declared number of raw payload bytes. Reading the payload as a
// counted block sidesteps escaping payload bytes that happen to contain the
// terminator.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r in a frame reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next reads and decodes the next frame. A header without a separator, or
// with an unparseable payload length, returns an error wrapping ErrBadFrame.
func (r *Reader) Next() (*Frame, error) {
	header, err := r.br.ReadString(Terminator)
	if err != nil {
		return nil, err
	}
	header = strings.TrimSuffix(header, string(Terminator))

	idx := strings.IndexByte(header, Separator)
	if idx < 0 {
		return nil, fmt.Errorf("%w: header %q has no separator", ErrBadFrame, header)
	}
	cmd := Command(header[:idx])
	rest := header[idx+1:]

	// A challenge or auth argument is always inline, even when it looks
	// numeric; it must never switch the reader into payload mode.
	if cmd == CmdChallenge || cmd == CmdAuth {
		return &Frame{Command: cmd, Arg: rest}, nil
	}

	if rest == "" {
		return &Frame{Command: cmd}, nil
	}

	length, err := strconv.Atoi(rest)
	if err != nil || length < 0 {
		return nil, fmt.Errorf("%w: bad payload length %q", ErrBadFrame, rest)
	}
	if length > maxPayloadBytes {
		return nil, fmt.Errorf("%w: payload length %d exceeds limit", ErrBadFrame, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, fmt.Errorf("read %d payload bytes for %s: %w", length, cmd, err)
	}
	return &Frame{Command: cmd, Payload: payload}, nil
}

// Writer encodes frames onto a byte stream. It serializes concurrent
// senders so a frame is never interleaved with another.
type Writer struct {
	mu sync.Mutex
	bw *bufio.Writer
}

// NewWriter wraps w in a frame writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Send writes a bare command frame.
func (w *Writer) Send(cmd Command) error {
	return w.SendArg(cmd, "")
}

// SendArg writes a command frame with an inline argument.
func (w *Writer) SendArg(cmd Command, arg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.bw.WriteString(string(cmd) + string(Separator) + arg); err != nil {
		return err
	}
	if err := w.bw.WriteByte(Terminator); err != nil {
		return err
	}
	return w.bw.Flush()
}

// SendPayload serializes v and writes a command frame with the declared
// payload length followed by the payload bytes.
func (w *Writer) SendPayload(cmd Command, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", cmd, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	header := string(cmd) + string(Separator) + strconv.Itoa(len(data))
	if _, err := w.bw.WriteString(header); err != nil {
		return err
	}
	if err := w.bw.WriteByte(Terminator); err != nil {
		return err
	}
	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	return w.bw.Flush()
}

// DecodePayload deserializes a frame's payload into T.
func DecodePayload[T any](f *Frame) (T, error) {
	var v T
	if err := sonic.Unmarshal(f.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", f.Command, err)
	}
	return v, nil
}
