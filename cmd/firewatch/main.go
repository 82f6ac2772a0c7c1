package main

import (
	"runtime"

	"github.com/ayusman/firewatch/cmd/firewatch/commands"
)

// HighGUI windows and the tray must stay on the process main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	commands.Execute()
}
