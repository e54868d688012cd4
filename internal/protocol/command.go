// Package protocol implements the wire protocol between master and workers:
// the newline-delimited frame codec with length-prefixed payloads, and the
// mutual challenge/response authentication primitives.
package protocol

// Command identifies one frame on the wire. The set is closed; every
// dispatch site switches over it exhaustively and treats anything else as a
// fatal unknown command.
type Command string

const (
	// CmdChallenge carries a nonce the receiver must prove the shared
	// secret against.
	CmdChallenge Command = "challenge"
	// CmdAuth carries the hex proof for the peer's outstanding challenge.
	CmdAuth Command = "auth"
	// CmdDisconnect tells the receiver to close the connection.
	CmdDisconnect Command = "disconnect"
	// CmdMap carries a types.MapTask payload.
	CmdMap Command = "map"
	// CmdReduce carries a types.ReduceTask payload.
	CmdReduce Command = "reduce"
	// CmdMapDone carries a types.MapResult payload.
	CmdMapDone Command = "mapdone"
	// CmdReduceDone carries a types.ReduceResult payload.
	CmdReduceDone Command = "reducedone"
)
