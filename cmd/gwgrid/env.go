package main

import (
	"os"
	"path/filepath"
)

const (
	_GridServer = "gridserver"
	_GridClient = "gridclient"
)

type _Env struct {
	Root string
}

var env _Env

func (env *_Env) ComponentDir(component string) string {
	return filepath.Join(env.Root, "components", component)
}

// Executable returns the path go build leaves the component binary at
func (env *_Env) Executable(component string) string {
	return filepath.Join(env.ComponentDir(component), component+BinaryExtension)
}

func detectRoot(root string) {
	abs, err := filepath.Abs(root)
	checkErrorOrQuit(err, "resolve root directory failed")
	if !isdir(filepath.Join(abs, "components", _GridServer)) {
		showMsgAndQuit("%s is not a gwgrid directory", abs)
	}
	env.Root = abs
	showMsg("gwgrid directory: %s", env.Root)
}

func isdir(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		panic(err)
	}
	return fi.IsDir()
}
