// Command threadviz renders accelerator/worker execution traces as timeline
// images.
package main

import "github.com/sarchlab/threadviz/threadviz/cmd"

func main() {
	cmd.Execute()
}
