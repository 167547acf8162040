package main

import "github.com/joyverse/joyverse-backend/internal/cli"

func main() {
	cli.Execute()
}
