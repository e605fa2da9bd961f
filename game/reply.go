// game/reply.go
package game

import "net"

// Notice is a best-effort message for the player who did not act.
type Notice struct {
	Ordinal  int
	Endpoint net.Addr
	Text     string
}

// Reply is the result of a fire command. Err is set when the command was
// rejected; Outcome and Notice are only meaningful when it was admitted.
type Reply struct {
	Text    string
	Outcome Outcome
	Err     error
	Notice  *Notice
}

// Reject builds a non-mutating rejection reply.
func Reject(err error) Reply {
	return Reply{Text: err.Error(), Err: err}
}

// Admitted reports whether the shot was resolved.
func (r Reply) Admitted() bool {
	return r.Err == nil
}
