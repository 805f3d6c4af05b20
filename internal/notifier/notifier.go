package notifier

// Notifier is the fire-and-forget alert sink. Failures are logged by the
// implementation and never surfaced to the caller; a broken alert channel
// must not fail a run.
type Notifier interface {
	Notify(text string)
}

// Noop discards all notifications. Used when no sink is configured.
type Noop struct{}

func (Noop) Notify(string) {}
