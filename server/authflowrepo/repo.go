package authflowrepo

import "time"

// AuthFlowState is what the login handler remembers between redirecting to the
// provider and receiving the callback.
type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
	// Consume returns the state and removes it in one step. Expired or unknown
	// states return ErrInvalidState.
	Consume(state string) (*AuthFlowState, error)
}
