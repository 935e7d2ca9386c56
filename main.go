package main

import "github.com/nycdatalab/tlcaudit/cmd"

func main() {
	cmd.Execute()
}
