//go:build !debug

package debug

const Enabled = false

func assert(bool, ...interface{})             {}
func assertf(bool, string, ...interface{})    {}
func assertNoErr(error)                       {}
