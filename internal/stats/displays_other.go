//go:build !windows

package stats

// listDisplays reports nothing on non-Windows hosts; sysmon usually
// runs headless there and X11/Wayland queries need a display server.
func listDisplays() []Display {
	return []Display{}
}
