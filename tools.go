//go:build tools

// Package callrelay tracks tool dependencies invoked via go generate.
package callrelay

import (
	_ "go.uber.org/mock/mockgen"
)
