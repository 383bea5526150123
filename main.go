package main

import "waitlist-service/cmd"

func main() {
	cmd.Execute()
}
