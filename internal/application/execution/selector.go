package execution

// selector.go — backend selection state machine.
//
// NONE -> {CLOB, SIMMER} -> READY | REJECTED. Selection is a pure function
// of (flags, environment): no network, no side effects. Policy rejections
// here must happen before any order-placement call can exist.

import (
	"errors"
	"fmt"
)

// Backend identifies the selected execution backend.
type Backend string

const (
	BackendNone   Backend = "none" // observe mode, no execution
	BackendCLOB   Backend = "clob"
	BackendSimmer Backend = "simmer"
)

// confirmLiveToken is the literal the operator must pass to arm live mode.
const confirmLiveToken = "YES"

// ErrPolicy marks a fail-closed policy rejection (missing confirmation,
// missing credentials, unknown backend). Callers map it to a distinct
// exit code.
var ErrPolicy = errors.New("execution policy rejection")

// Env reads one environment variable; injected so selection stays pure.
type Env func(key string) string

// clobCredsPresent reports whether all direct-exchange credentials are set.
func clobCredsPresent(env Env) bool {
	return env("POLY_API_KEY") != "" &&
		env("POLY_SECRET") != "" &&
		env("POLY_PASSPHRASE") != "" &&
		env("POLY_ADDRESS") != ""
}

// Select resolves the execution backend from flags and environment.
//
// Observe mode always resolves to BackendNone. Live mode requires the
// literal confirmation token before anything else is even considered.
// "auto" prefers direct-exchange credentials, then the hosted broker key,
// and fails closed when neither is present.
func Select(execute bool, confirmLive, backend string, env Env) (Backend, error) {
	if !execute {
		return BackendNone, nil
	}
	if confirmLive != confirmLiveToken {
		return BackendNone, fmt.Errorf("%w: live mode requires -confirm-live=%s", ErrPolicy, confirmLiveToken)
	}

	switch backend {
	case "auto":
		if clobCredsPresent(env) {
			return BackendCLOB, nil
		}
		if env("SIMMER_API_KEY") != "" {
			return BackendSimmer, nil
		}
		return BackendNone, fmt.Errorf("%w: no credentials found for any backend", ErrPolicy)

	case "clob":
		if !clobCredsPresent(env) {
			return BackendNone, fmt.Errorf("%w: clob backend requires POLY_API_KEY, POLY_SECRET, POLY_PASSPHRASE and POLY_ADDRESS", ErrPolicy)
		}
		return BackendCLOB, nil

	case "simmer":
		if env("SIMMER_API_KEY") == "" {
			return BackendNone, fmt.Errorf("%w: simmer backend requires SIMMER_API_KEY", ErrPolicy)
		}
		return BackendSimmer, nil

	default:
		return BackendNone, fmt.Errorf("%w: unknown backend %q", ErrPolicy, backend)
	}
}
