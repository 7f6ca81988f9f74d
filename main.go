package main

import "github.com/slmtnm/s4admin/cmd"

func main() {
	cmd.Execute()
}
