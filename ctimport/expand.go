package ctimport

import (
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading ~ to the current user's home directory. If
// the user cannot be determined the path is returned unchanged.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}

	usr, err := user.Current()
	if err != nil {
		return p
	}

	if p == "~" {
		return usr.HomeDir
	}

	return filepath.Join(usr.HomeDir, p[2:])
}
