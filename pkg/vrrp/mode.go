package vrrp

import "net"

// ModeKind discriminates the two ways a virtual router can be
// configured: as the address owner, or as a backup candidate.
type ModeKind int

const (
	ModeOwner ModeKind = iota
	ModeBackup
)

// Mode is the static configuration of one virtual router: either the
// address owner (priority forced to 255, accept and preempt forced
// true, primary IP the first virtual address), or a Backup carrying
// its own primary IP, priority, and preempt/accept flags. Backup is
// only meaningful when Kind is ModeBackup.
type Mode struct {
	Kind   ModeKind
	Backup BackupMode
}

// BackupMode is the configuration particular to a Backup-mode virtual
// router.
type BackupMode struct {
	PrimaryIP net.IP
	Priority  Priority
	Preempt   bool
	Accept    bool
}

// OwnerMode returns the Mode for an address owner.
func OwnerMode() Mode {
	return Mode{Kind: ModeOwner}
}

// NewBackupMode returns the Mode for a Backup with the given primary
// IP, priority, and preempt/accept flags.
func NewBackupMode(primaryIP net.IP, priority Priority, preempt, accept bool) Mode {
	return Mode{
		Kind: ModeBackup,
		Backup: BackupMode{
			PrimaryIP: primaryIP,
			Priority:  priority,
			Preempt:   preempt,
			Accept:    accept,
		},
	}
}
