package main

import (
	"os"
	"strings"

	speedtest "github.com/cubiclesoft/network-speedtest-cli/internal/apps/speedtest/cmds"
	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
)

func main() {
	logs.SetComponent(detectComponent("client"))

	var execErr error

	rt := runtime.NewClientRuntime()
	defer rt.Finalize("speedtest", "Type 'speedtest help' to get help.", &execErr)

	execErr = speedtest.Execute(rt)
}

func detectComponent(base string) string {
	if len(os.Args) > 1 && len(os.Args[1]) > 0 && os.Args[1][0] != '-' {
		return base + ":" + strings.Join(os.Args[1:2], " ")
	}
	return base
}
