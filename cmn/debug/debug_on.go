//go:build debug

package debug

import "fmt"

const Enabled = true

func assert(cond bool, msg ...interface{}) {
	if !cond {
		panic(fmt.Sprintln(append([]interface{}{"assertion failed:"}, msg...)...))
	}
}

func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

func assertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
	}
}
