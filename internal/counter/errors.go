package counter

import "errors"

// Construction-time failures; no usable client exists after any of these.
var (
	ErrAgentCreation   = errors.New("counter: agent creation failed")
	ErrTrustBootstrap  = errors.New("counter: trust bootstrap failed")
	ErrInvalidIdentity = errors.New("counter: invalid canister identity")
)

// Per-call failures; the handle stays usable and each operation is
// independently retriable by the caller.
var (
	ErrRemoteCall = errors.New("counter: remote call failed")
	ErrDecode     = errors.New("counter: response decode failed")
	ErrRemote     = errors.New("counter: canister reported failure")
)

// ErrUnrehydrated fires on a client rebuilt from its serialized form before
// Rehydrate has given it a live connection again.
var ErrUnrehydrated = errors.New("counter: client has no live agent")

// ErrUnknownAction fires on a dispatch value outside the closed action set.
var ErrUnknownAction = errors.New("counter: unknown action")
