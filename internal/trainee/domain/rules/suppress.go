package rules

// StatusDetailJustLogged is the history statusDetail recorded when a
// dispatch was suppressed-but-logged.
const StatusDetailJustLogged = "just logged"

// DispatchContext carries the facts JustLog needs: the outcome of the
// eligibility SPI calls plus whether this is an LO-targeted notification
// that needed a resolved deanery contact.
type DispatchContext struct {
	PersonID             string
	IsEligibleRecipient  bool
	HasDummyRole         bool
	MessagingEnabled     bool
	IsLOTargeted         bool
	DeanaryContactResolved bool
}

// JustLog computes the suppress-vs-send flag per §4.5.3. Whitelist
// membership overrides every check except the dummy-role check.
func JustLog(ctx DispatchContext, cfg Config) bool {
	if ctx.HasDummyRole {
		return true
	}
	if cfg.IsWhitelisted(ctx.PersonID) {
		return false
	}
	if !ctx.IsEligibleRecipient || !ctx.MessagingEnabled {
		return true
	}
	if ctx.IsLOTargeted && !ctx.DeanaryContactResolved {
		return true
	}
	return false
}

// HasDummyRole reports whether any of roles appears in the configured
// dummy-role set.
func HasDummyRole(roles []string, cfg Config) bool {
	for _, r := range roles {
		if _, ok := cfg.DummyRoles[r]; ok {
			return true
		}
	}
	return false
}
