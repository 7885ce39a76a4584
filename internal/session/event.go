package session

// Cause names the store operation behind a transition.
type Cause int

const (
	CauseInitialize Cause = iota // first resolution at startup
	CauseRefresh                 // explicit re-resolution
	CauseLogin                   // login flow handed over an identity
	CauseLogout                  // local sign-out
)

func (c Cause) String() string {
	switch c {
	case CauseInitialize:
		return "initialize"
	case CauseRefresh:
		return "refresh"
	case CauseLogin:
		return "login"
	case CauseLogout:
		return "logout"
	}
	return "unknown"
}

// Transition carries one state change to listeners. Both snapshots are
// copies and safe to retain.
type Transition struct {
	Prev  State
	Next  State
	Cause Cause
}

// Entered reports whether the transition moved into status.
func (t Transition) Entered(status Status) bool {
	return t.Prev.Status != status && t.Next.Status == status
}

// Left reports whether the transition moved out of status.
func (t Transition) Left(status Status) bool {
	return t.Prev.Status == status && t.Next.Status != status
}

// Listener observes transitions. It runs synchronously inside the
// transition, so it must not call back into the store's operations.
type Listener func(Transition)
