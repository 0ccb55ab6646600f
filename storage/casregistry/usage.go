package casregistry

// Usage restricts which programs accept a backend.
type Usage uint8

const (
	// UsageCLI marks backends available to the bloom command.
	UsageCLI Usage = 1 << iota
	// UsageTest marks backends that only exist for tests.
	UsageTest
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
