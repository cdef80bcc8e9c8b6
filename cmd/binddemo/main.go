// Command binddemo runs data binding scenes described in YAML.
//
// A scene declares objects, bindings and a script of value changes. run
// executes the script and writes one PNG per step, watch does the same
// whenever the scene file is saved, and check validates a scene and runs
// it with invariant checks enabled.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
