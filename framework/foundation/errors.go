package foundation

import "fmt"

// Lifecycle phases reported by ProviderError.
const (
	PhaseRegister = "register"
	PhaseBoot     = "boot"
	PhaseBooted   = "booted callback"
)

// ProviderError wraps a failure in a provider's Register or Boot. Bootstrap
// stops at the first one; there is no partial application.
type ProviderError struct {
	Provider string
	Phase    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("foundation: provider %s failed during %s: %v", e.Provider, e.Phase, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
