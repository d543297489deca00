package main

import (
	"github.com/ColonelBlimp/bomnode/cmd"
	"github.com/ColonelBlimp/bomnode/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
