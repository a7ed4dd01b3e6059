package main

import (
	"github.com/oagudo/txscope/cmd/txdemo/cmd"
)

func main() {
	cmd.New().Execute()
}
