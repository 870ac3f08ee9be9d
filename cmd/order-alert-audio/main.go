package main

import "github.com/oshokin/order-alert/cmd/order-alert-audio/cmd"

func main() {
	cmd.Execute()
}
