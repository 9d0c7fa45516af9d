package main

import "github.com/dxblostfound/lostfound/cmd"

func main() {
	cmd.Execute()
}
