package notifier

// TextNotifier is a minimal fire-and-forget notification sink. Components
// depend on this interface rather than a concrete transport.
type TextNotifier interface {
	SendText(text string) error
}

// Nop discards every message. Used when no sink is configured and in tests.
type Nop struct{}

func (Nop) SendText(string) error { return nil }
