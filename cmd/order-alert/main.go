package main

import "github.com/oshokin/order-alert/cmd/order-alert/cmd"

func main() {
	cmd.Execute()
}
