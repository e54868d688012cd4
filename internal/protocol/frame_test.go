package protocol

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestReader_BareCommand(t *testing.T) {
	r := NewReader(strings.NewReader("disconnect:\n"))

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, CmdDisconnect, f.Command)
	assert.Empty(t, f.Arg)
	assert.Nil(t, f.Payload)
}

func TestReader_ChallengeArgIsNeverALength(t *testing.T) {
	// A nonce that happens to look numeric must stay an inline argument;
	// treating it as a payload length would desynchronize the stream.
	r := NewReader(strings.NewReader("challenge:12345\ndisconnect:\n"))

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, CmdChallenge, f.Command)
	assert.Equal(t, "12345", f.Arg)

	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, CmdDisconnect, f.Command)
}

func TestReader_AuthArgInline(t *testing.T) {
	r := NewReader(strings.NewReader("auth:deadbeef\n"))

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, CmdAuth, f.Command)
	assert.Equal(t, "deadbeef", f.Arg)
}

func TestReader_PayloadFrame(t *testing.T) {
	// Payload bytes follow the header raw, without a trailing terminator,
	// and may themselves contain the terminator.
	payload := `{"key":"a\nb"}`
	r := NewReader(strings.NewReader("mapdone:" + strconv.Itoa(len(payload)) + "\n" + payload + "disconnect:\n"))

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, CmdMapDone, f.Command)
	assert.Equal(t, payload, string(f.Payload))

	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, CmdDisconnect, f.Command)
}

func TestReader_HeaderWithoutSeparator(t *testing.T) {
	r := NewReader(strings.NewReader("mapdone\n"))

	_, err := r.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestReader_BadPayloadLength(t *testing.T) {
	for _, rest := range []string{"abc", "-3", "999999999999999999999"} {
		r := NewReader(strings.NewReader("map:" + rest + "\n"))

		_, err := r.Next()
		require.Error(t, err, "length %q", rest)
		assert.ErrorIs(t, err, ErrBadFrame)
	}
}

func TestReader_TruncatedPayload(t *testing.T) {
	r := NewReader(strings.NewReader("map:100\nshort"))

	_, err := r.Next()
	assert.Error(t, err)
}

func TestWriter_SendArg(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.SendArg(CmdChallenge, "cafe01"))
	assert.Equal(t, "challenge:cafe01\n", buf.String())
}

func TestWriter_SendBare(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Send(CmdDisconnect))
	assert.Equal(t, "disconnect:\n", buf.String())
}

func TestRoundTrip_Payload(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	in := map[string][]any{"x": {1.0, 2.0}, "y": {"z"}}
	require.NoError(t, w.SendPayload(CmdMapDone, in))

	f, err := NewReader(&buf).Next()
	require.NoError(t, err)
	require.Equal(t, CmdMapDone, f.Command)

	out, err := DecodePayload[map[string][]any](f)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// TestProperty_FrameRoundTrip checks that any sequence of frames written by
// the Writer is decoded back identically by the Reader.
func TestProperty_FrameRoundTrip(t *testing.T) {
	payloadCommands := []Command{CmdMap, CmdReduce, CmdMapDone, CmdReduceDone}

	rapid.Check(t, func(t *rapid.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)

		n := rapid.IntRange(1, 20).Draw(t, "frames")
		type sent struct {
			cmd     Command
			arg     string
			payload map[string]string
		}
		frames := make([]sent, 0, n)

		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "kind") {
			case 0:
				arg := rapid.StringMatching(`[0-9a-f]{1,40}`).Draw(t, "arg")
				require.NoError(t, w.SendArg(CmdChallenge, arg))
				frames = append(frames, sent{cmd: CmdChallenge, arg: arg})
			case 1:
				require.NoError(t, w.Send(CmdDisconnect))
				frames = append(frames, sent{cmd: CmdDisconnect})
			default:
				cmd := rapid.SampledFrom(payloadCommands).Draw(t, "cmd")
				payload := rapid.MapOfN(
					rapid.StringMatching(`[a-z]{1,8}`),
					rapid.String(),
					1, 5,
				).Draw(t, "payload")
				require.NoError(t, w.SendPayload(cmd, payload))
				frames = append(frames, sent{cmd: cmd, payload: payload})
			}
		}

		r := NewReader(&buf)
		for _, want := range frames {
			f, err := r.Next()
			require.NoError(t, err)
			require.Equal(t, want.cmd, f.Command)
			require.Equal(t, want.arg, f.Arg)
			if want.payload != nil {
				got, err := DecodePayload[map[string]string](f)
				require.NoError(t, err)
				require.Equal(t, want.payload, got)
			}
		}
	})
}
