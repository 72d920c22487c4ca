package domain

// OutcomeKind classifies the result of a delivery attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeHTTPFailure
	OutcomeTransportFailure
)

// String returns a human-readable representation of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPFailure:
		return "http_failure"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Kind OutcomeKind

	// StatusCode is set for Success and HTTPFailure.
	StatusCode int

	// Body is the response body for HTTPFailure.
	Body []byte

	// Err is the underlying error for failures.
	Err error
}

// Success returns a successful outcome.
func Success(status int) Outcome {
	return Outcome{Kind: OutcomeSuccess, StatusCode: status}
}

// StatusOutcome classifies a received response: Success for 2xx, HTTPFailure
// otherwise.
func StatusOutcome(status int, body []byte) Outcome {
	if IsSuccessStatus(status) {
		return Success(status)
	}
	return HTTPFailure(status, body)
}

// HTTPFailure returns an outcome for a response outside the 2xx range.
func HTTPFailure(status int, body []byte) Outcome {
	return Outcome{
		Kind:       OutcomeHTTPFailure,
		StatusCode: status,
		Body:       body,
		Err:        &HTTPStatusError{StatusCode: status, Body: body},
	}
}

// TransportFailure returns an outcome for a request that produced no response.
func TransportFailure(err error) Outcome {
	return Outcome{
		Kind: OutcomeTransportFailure,
		Err:  &TransportError{Err: err},
	}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// IsSuccessStatus reports whether status is in the 200-299 range.
func IsSuccessStatus(status int) bool {
	return status >= 200 && status <= 299
}
