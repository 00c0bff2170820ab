package utils

import (
	"os"
	"os/user"
	"runtime"
	"strconv"

	"github.com/problame/forward-as-attachment-mta/models"
)

// Identity collects the identity of the current process. Name lookups that
// fail leave their field empty: the caller wants a report, not an error.
func Identity() models.LocalIdentity {
	id := models.LocalIdentity{
		UID:      os.Getuid(),
		GID:      os.Getgid(),
		EUID:     os.Geteuid(),
		EGID:     os.Getegid(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	id.Hostname = Hostname()
	if u, err := user.LookupId(strconv.Itoa(id.UID)); err == nil {
		id.Username = u.Username
	}
	if g, err := user.LookupGroupId(strconv.Itoa(id.GID)); err == nil {
		id.Groupname = g.Name
	}
	if u, err := user.LookupId(strconv.Itoa(id.EUID)); err == nil {
		id.EffectiveUsername = u.Username
	}
	if g, err := user.LookupGroupId(strconv.Itoa(id.EGID)); err == nil {
		id.EffectiveGroupname = g.Name
	}
	return id
}

// Hostname returns the local hostname, or a placeholder when the kernel
// will not tell. The value ends up in subject lines and Message-Ids, so it
// must never be empty.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "???"
	}
	return h
}
