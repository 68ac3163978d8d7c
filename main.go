package main

import (
	"dealer_hub/config"
)

func main() {
	cfg := config.Load()

	// 连接数据库、执行迁移、连接Redis
	config.InitApp(cfg)

	app := config.SetupApp(cfg)

	config.StartServer(app, cfg.ServerPort)
}
