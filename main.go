package main

import "github.com/AmariahAK/commit-checker/cmd"

func main() {
	cmd.Execute()
}
