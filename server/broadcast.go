package main

import "github.com/jbantin/multiplayer-proto/protocol"

// outbound is one message with its frames encoded lazily, once per encoding
type outbound struct {
	t      string
	data   interface{}
	frames [2][]byte
	done   [2]bool
}

func newOutbound(t string, data interface{}) *outbound {
	return &outbound{t: t, data: data}
}

// frame returns the encoded message, or nil if it cannot be encoded
func (o *outbound) frame(enc protocol.Encoding) []byte {
	i := 0
	if enc == protocol.MsgPack {
		i = 1
	}
	if !o.done[i] {
		o.done[i] = true
		b, err := protocol.Marshal(enc, o.t, o.data)
		if err != nil {
			Log.Errorw("encode frame", "type", o.t, "encoding", enc.String(), "err", err)
		}
		o.frames[i] = b
	}
	return o.frames[i]
}

// sendTo hands each message to the session's queue
func sendTo(s Session, msgs ...*outbound) {
	enc := s.Encoding()
	for _, m := range msgs {
		if f := m.frame(enc); f != nil {
			s.Enqueue(f)
		}
	}
}
