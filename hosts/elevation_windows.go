package hosts

import "golang.org/x/sys/windows"

const permissionRemedy = "run the client as administrator"

// Elevated reports whether the process runs with administrator rights.
func Elevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
