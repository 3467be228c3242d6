package main

import (
	"fmt"
	"os"
)

const exitFailure = 2

func showMsg(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "> %s\n", fmt.Sprintf(format, a...))
}

func showMsgAndQuit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "! %s\n", fmt.Sprintf(format, a...))
	os.Exit(exitFailure)
}

func checkErrorOrQuit(err error, what string) {
	if err != nil {
		showMsgAndQuit("%s: %v", what, err)
	}
}
