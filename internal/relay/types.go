package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// ControlPort is the device's fixed control protocol port.
const ControlPort = 8060

var (
	// ErrInvalidAddress means the target address is empty or not a host.
	ErrInvalidAddress = errors.New("invalid device address")
	// ErrEmptyOperand means the key, app ID or query path is empty.
	ErrEmptyOperand = errors.New("empty operand")
	// ErrInvalidOperand means the operand cannot be forwarded as a path.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrUnknownOperation means the operation is not keypress, launch or query.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrUnreachable wraps every network-level failure reaching a device.
	ErrUnreachable = errors.New("device unreachable")
)

// Operation is a device control command family.
type Operation string

const (
	OpKeypress Operation = "keypress"
	OpLaunch   Operation = "launch"
	OpQuery    Operation = "query"
)

// Method returns the HTTP method the device expects for the operation.
func (o Operation) Method() string {
	if o == OpQuery {
		return http.MethodGet
	}
	return http.MethodPost
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	switch o {
	case OpKeypress, OpLaunch, OpQuery:
		return true
	}
	return false
}

func (o Operation) String() string { return string(o) }

// Request is one command to forward to a device. Address and Operand are
// already URL-decoded.
type Request struct {
	Address   string
	Operation Operation
	Operand   string
}

// Response is what the device answered.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Kind tags an Outcome.
type Kind int

const (
	// KindSuccess: the device answered with a 2xx status.
	KindSuccess Kind = iota
	// KindRejected: the device answered with any other status.
	KindRejected
	// KindUnreachable: no HTTP response was received.
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRejected:
		return "rejected"
	case KindUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Outcome is the result of one forward. Response is set unless Kind is
// KindUnreachable, in which case Err describes the failure.
type Outcome struct {
	Kind     Kind
	Response Response
	Err      error
}

// Reached reports whether the device produced an HTTP response.
func (o Outcome) Reached() bool {
	return o.Kind != KindUnreachable
}

func success(resp Response) Outcome {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Outcome{Kind: KindSuccess, Response: resp}
	}
	return Outcome{Kind: KindRejected, Response: resp}
}

func unreachable(err error) Outcome {
	return Outcome{Kind: KindUnreachable, Err: fmt.Errorf("%w: %w", ErrUnreachable, err)}
}
