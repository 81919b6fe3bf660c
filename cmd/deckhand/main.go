package main

import "github.com/cameronsjo/deckhand/internal/cmd"

func main() {
	cmd.Execute()
}
