package utils

import (
	"io"

	"github.com/davecgh/go-spew/spew"
)

var spewConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
	MaxDepth:                6,
}

// Fdump writes a deep dump of a to w.
func Fdump(w io.Writer, a ...interface{}) {
	spewConfig.Fdump(w, a...)
}
