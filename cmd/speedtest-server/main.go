package main

import (
	speedtestserver "github.com/cubiclesoft/network-speedtest-cli/internal/apps/server/cmds"
	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
)

func main() {
	logs.SetComponent("server")

	var execErr error

	rt := runtime.NewServerRuntime()
	defer rt.Finalize("speedtest-server", "Type 'speedtest-server help' to get help.", &execErr)

	execErr = speedtestserver.Execute(rt)
}
