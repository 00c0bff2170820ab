package models

import "fmt"

// LocalIdentity describes the environment that invoked us. It is reported
// in the wrapper body so the operator can tell which machine and which
// account submitted a message. Advisory only: delivery never depends on it.
type LocalIdentity struct {
	Hostname           string
	UID                int
	GID                int
	EUID               int
	EGID               int
	Username           string
	Groupname          string
	EffectiveUsername  string
	EffectiveGroupname string
	Platform           string
}

// IDLine renders the numeric ids the way id(1) reports them.
func (id LocalIdentity) IDLine() string {
	return fmt.Sprintf("uid:%d gid:%d euid:%d egid:%d", id.UID, id.GID, id.EUID, id.EGID)
}
