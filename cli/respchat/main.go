package main

import (
	"os"

	respchatcmder "github.com/kosar/responses-api/cmd/respchat"
)

func main() {
	cmd := respchatcmder.NewRespchatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
