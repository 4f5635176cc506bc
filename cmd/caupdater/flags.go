package main

// RunFlags decouples cobra from the update logic for testing. Hour and
// minute values are floats, matching the historical CLI contract.
type RunFlags struct {
	ConfigPath string

	MinimumAgeHours   float64
	MaximumAgeHours   float64
	RandomWaitMinutes float64

	StateFile string
	LockFile  string

	PackageManager string
	RepoqueryBin   string
	Packages       []string

	HistoryDSN      string
	MetricsTextfile string

	LogFile        string
	LogToSyslog    bool
	SyslogFacility string
	SyslogAddress  string
	Quiet          bool
	Verbose        bool
	Debug          bool
}

// StatusFlags configures the status subcommand.
type StatusFlags struct {
	ConfigPath string
	StateFile  string
}
