package domain

// RequestKind tags which of the two supported request shapes we're holding
type RequestKind int

const (
	KindUnknown RequestKind = iota
	KindGenerate
	KindChat
)

func (k RequestKind) String() string {
	switch k {
	case KindGenerate:
		return "generate"
	case KindChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Envelope is the typed form of an inbound POST body. Input holds the prompt
// for generate and the single user message for chat.
type Envelope struct {
	Model   string
	Input   string
	Session string
	Kind    RequestKind
	Stream  bool
}

func (e Envelope) IsGenerate() bool { return e.Kind == KindGenerate }
func (e Envelope) IsChat() bool     { return e.Kind == KindChat }

// Reply is what a backend call hands back to the gateway. Exactly one of
// Text (under Key) or Err is meaningful; see Body in the gateway for framing.
type Reply struct {
	Err  error
	Key  string
	Text string
}

func TextReply(key, text string) Reply {
	return Reply{Key: key, Text: text}
}

func ErrorReply(err error) Reply {
	return Reply{Err: err}
}

func (r Reply) Failed() bool {
	return r.Err != nil
}
