package main

import "github.com/ramiqadoumi/go-resume-flow/services/api/cli"

func main() {
	cli.Execute()
}
