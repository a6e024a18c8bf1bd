package risk

// Level is the coarse risk classification.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

const (
	weightJailbroken = 3
	weightRooted     = 3
	weightDebugging  = 1
	weightEmulator   = 2
)

// Score sums the weights of the raised device signals.
func Score(d DeviceSignals) int {
	total := 0
	if d.Jailbroken {
		total += weightJailbroken
	}
	if d.Rooted {
		total += weightRooted
	}
	if d.Debugging {
		total += weightDebugging
	}
	if d.Emulator {
		total += weightEmulator
	}
	return total
}

// LevelFor maps a score to its level.
func LevelFor(score int) Level {
	switch {
	case score >= 5:
		return LevelCritical
	case score >= 3:
		return LevelHigh
	case score >= 1:
		return LevelMedium
	default:
		return LevelLow
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
