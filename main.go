package main

import "github.com/lukman83/pricehound/cmd"

func main() {
	cmd.Execute()
}
