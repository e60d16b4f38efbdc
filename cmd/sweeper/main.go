package main

import "github.com/ramiqadoumi/go-resume-flow/services/sweeper/cli"

func main() {
	cli.Execute()
}
