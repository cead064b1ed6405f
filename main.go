package main

import "github.com/gaurav-prasanna/epubclean/cmd"

func main() {
	cmd.Execute()
}
