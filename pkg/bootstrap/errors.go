package bootstrap

import (
	"fmt"
	"strings"

	"github.com/newtron-network/newtboot/pkg/util"
)

// PhaseError reports every router that failed one orchestration phase.
// It unwraps to each router's error.
type PhaseError struct {
	Phase    string
	Failures []*util.RouterError
}

func (e *PhaseError) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s failed on %d routers:\n  %s", e.Phase, len(e.Failures), strings.Join(msgs, "\n  "))
}

func (e *PhaseError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Routers returns the names of the failed routers.
func (e *PhaseError) Routers() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Router
	}
	return names
}
