package selfupdate

// State is a step of the self-update state machine.
type State int

const (
	StateFetchLatestTag State = iota
	StateDownloadArchive
	StateExtract
	StateBackupCurrentInstall
	StateReplaceInstall
	StateValidateNewInstall
	StateCleanup
	StateRollback
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateFetchLatestTag:       "FetchLatestTag",
	StateDownloadArchive:      "DownloadArchive",
	StateExtract:              "Extract",
	StateBackupCurrentInstall: "BackupCurrentInstall",
	StateReplaceInstall:       "ReplaceInstall",
	StateValidateNewInstall:   "ValidateNewInstall",
	StateCleanup:              "Cleanup",
	StateRollback:             "Rollback",
	StateDone:                 "Done",
	StateFailed:               "Failed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}
