package main

import "github.com/turbolytics/locator/internal/cmd"

func main() {
	cmd.Execute()
}
