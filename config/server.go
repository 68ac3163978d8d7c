package config

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
)

// StartServer 启动HTTP服务器并处理优雅关闭
// 收到 SIGINT 或 SIGTERM 后等待活跃连接完成再退出
func StartServer(app *fiber.App, port string) {
	if port == "" {
		port = "8080"
	}

	// 创建系统信号通道
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 在单独的goroutine中启动服务器，主goroutine处理信号
	go func() {
		if err := app.Listen(fmt.Sprintf(":%s", port)); err != nil {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	log.Printf("服务器已启动，监听端口 %s", port)

	<-sigChan
	log.Println("收到终止信号，开始优雅关闭...")

	if err := app.Shutdown(); err != nil {
		log.Printf("服务器关闭时发生错误: %v", err)
	}

	log.Println("服务器已安全关闭")
}
