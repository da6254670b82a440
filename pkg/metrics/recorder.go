// Package metrics defines the measurements the console client emits.
package metrics

import "time"

// Mutation results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder receives measurements from the gateway, the session manager and
// the resource controllers. Implementations must be safe for concurrent use.
type Recorder interface {
	// ObserveRequest records one completed gateway request. status is 0 when
	// no HTTP response was received.
	ObserveRequest(method, endpoint string, status int, duration time.Duration)

	// IncSessionExpired counts 401 responses that raised an expiry event.
	IncSessionExpired()

	// ObserveTransition counts a session state transition.
	ObserveTransition(from, to string)

	// ObserveMutation counts a create, update or delete attempt.
	ObserveMutation(resource, action, result string)
}

// Nop returns a Recorder that discards everything.
func Nop() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, int, time.Duration) {}
func (nopRecorder) IncSessionExpired()                                {}
func (nopRecorder) ObserveTransition(string, string)                  {}
func (nopRecorder) ObserveMutation(string, string, string)            {}

// Result maps an error to ResultSuccess or ResultFailure.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
