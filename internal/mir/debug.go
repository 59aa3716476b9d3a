package mir

import (
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// dumpConfig keeps pointer addresses out of the dump so two runs over the
// same program produce identical output.
var dumpConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}

// DumpFunction writes a deep dump of f to w when SHIIKA_DEBUG_DUMP=1, for
// diagnosing verifier failures; a no-op otherwise.
func DumpFunction(w io.Writer, f *Function) {
	if os.Getenv("SHIIKA_DEBUG_DUMP") != "1" {
		return
	}
	dumpConfig.Fdump(w, f)
}
