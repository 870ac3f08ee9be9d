package main

import "github.com/oshokin/order-alert/cmd/order-alert-monitor/cmd"

func main() {
	cmd.Execute()
}
