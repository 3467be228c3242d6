package main

import (
	"os"
	"os/exec"
)

func build() {
	buildComponent(_GridServer)
	buildComponent(_GridClient)
}

func buildComponent(component string) {
	showMsg("go build %s ...", component)
	cmd := exec.Command("go", "build", "-o", env.Executable(component), ".")
	cmd.Dir = env.ComponentDir(component)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout
	err := cmd.Run()
	checkErrorOrQuit(err, "build "+component+" failed")
}
