package main

import "github.com/ovaphlow/pitchfork/service-plaques-go/cmd/platectl/cmd"

func main() {
	cmd.Execute()
}
