package main

import "github.com/ramiqadoumi/go-resume-flow/services/notifier/cli"

func main() {
	cli.Execute()
}
