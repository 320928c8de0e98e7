package main

import "github.com/mvp-joe/py-flow-trace/internal/cli"

func main() {
	cli.Execute()
}
