package main

import "github.com/fifteenfame/viralcut/internal/cli"

func main() {
	cli.Main()
}
