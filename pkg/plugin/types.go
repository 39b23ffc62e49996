package plugin

// Category represents the capability family a plugin belongs to.
type Category string

const (
	CategoryWallet    Category = "wallet"
	CategoryToken     Category = "token"
	CategorySwap      Category = "swap"
	CategoryStaking   Category = "staking"
	CategoryBridge    Category = "bridge"
	CategoryKnowledge Category = "knowledge"
)

// Info contains descriptive metadata for a plugin implementation.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
	Category    Category
}

// State represents the lifecycle position of a plugin instance.
type State string

const (
	StateRegistered  State = "registered"
	StateInitialised State = "initialised"
)
