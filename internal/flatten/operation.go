package flatten

import "path/filepath"

// Status is a flatten operation's lifecycle state.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusMoved      Status = "moved"
	StatusVerified   Status = "verified"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// Operation is one level of collapsing: SourceDir's contents move into
// TargetDir by way of TempName.
type Operation struct {
	Project    string
	SourceDir  string
	TempName   string
	TargetDir  string
	Depth      int
	Status     Status
	Collisions []string
	Err        error
}

// TempPath is the absolute path of the renamed source directory.
func (op Operation) TempPath() string {
	return filepath.Join(op.TargetDir, op.TempName)
}
