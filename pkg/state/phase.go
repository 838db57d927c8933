package state

// Phase is where a format run is at.
type Phase int

const (
	Validating Phase = iota // checking the root is a bare root reference
	Resolving               // looking the root up in the table
	Unmounting              // making sure nothing is mounted on the root
	Erasing                 // erasing the flash partition
	Done                    // the partition was erased and closed
	Error                   // a step failed, nothing after it ran
)

func (p Phase) String() string {
	switch p {
	case Validating:
		return "validating"
	case Resolving:
		return "resolving"
	case Unmounting:
		return "unmounting"
	case Erasing:
		return "erasing"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
