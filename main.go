package main

import "github.com/ValentinKolb/dRow/cmd"

func main() {
	cmd.Execute()
}
