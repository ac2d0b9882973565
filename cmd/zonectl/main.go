package main

import "edge_redirects/internal/cli"

func main() {
	cli.Execute()
}
