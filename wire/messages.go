package wire

const (
	// TypeCall marks a guest-initiated function call.
	TypeCall = "call"
	// TypeCallResult marks the host's answer to a call.
	TypeCallResult = "call_result"
	// TypeRespond marks the guest's terminal message.
	TypeRespond = "respond"
)

// Envelope field names.
const (
	FieldContext = "context"
	FieldInputs  = "inputs"
)

// Call response field names.
const (
	FieldType   = "type"
	FieldID     = "id"
	FieldResult = "result"
	FieldError  = "error"
)

// Envelope is the single message a host delivers at session start.
type Envelope struct {
	Context Map `msgpack:"context"`
	Inputs  Map `msgpack:"inputs"`
}

// ParseEnvelope extracts the context and inputs sub-fields from a decoded
// envelope. Each field is defaulted to an empty Map independently when it is
// absent or not a mapping; ParseEnvelope itself never fails.
func ParseEnvelope(raw Map) Envelope {
	return Envelope{
		Context: MapOrEmpty(raw[FieldContext]),
		Inputs:  MapOrEmpty(raw[FieldInputs]),
	}
}

// CallRequest asks the host to run a function on the guest's behalf.
type CallRequest struct {
	Type     string `msgpack:"type"`
	Function string `msgpack:"function"`
	Inputs   Map    `msgpack:"inputs"`
	ID       string `msgpack:"id"`
}

// NewCallRequest builds a call request correlated by id. Nil inputs are sent
// as an empty mapping.
func NewCallRequest(function string, inputs Map, id string) CallRequest {
	if inputs == nil {
		inputs = Map{}
	}
	return CallRequest{Type: TypeCall, Function: function, Inputs: inputs, ID: id}
}

// Matches reports whether raw is a call_result carrying id.
func Matches(raw any, id string) (Map, bool) {
	m, err := AsMap(raw)
	if err != nil {
		return nil, false
	}
	typ, _ := m[FieldType].(string)
	got, _ := m[FieldID].(string)
	if typ != TypeCallResult || got != id {
		return nil, false
	}
	return m, true
}

// RespondMessage publishes the final context to a socket host.
type RespondMessage struct {
	Type    string `msgpack:"type"`
	Context Map    `msgpack:"context"`
}

// NewRespondMessage wraps ctx for the socket transport. A nil ctx is sent as
// an empty mapping.
func NewRespondMessage(ctx Map) RespondMessage {
	if ctx == nil {
		ctx = Map{}
	}
	return RespondMessage{Type: TypeRespond, Context: ctx}
}
