// Command mapred is the entry point for both the master and worker roles of
// the mapreduce engine.
package main

import "mapred/engine/cmd"

func main() {
	cmd.Execute()
}
