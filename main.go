package main

import "playstore-analytics/cmd"

func main() {
	cmd.Execute()
}
