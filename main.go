package main

import "github.com/CraigKelly/hsdm/cmd"

// TODO: read y, X, Z and the weights from files so the CLI can fit real data

func main() {
	cmd.Execute()
}
