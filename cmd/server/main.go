package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/snipero7/qr24-sub000/internal/app"
	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/logger"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiCyan  = "\033[36m"
	ansiDim   = "\033[2m"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(mode)

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	release := cfg.Server.Mode == "release"
	for name, secret := range map[string]string{"jwt.secret": cfg.JWT.SecretKey, "tracking.secret": cfg.Tracking.Secret} {
		if !isWeakSecret(secret) {
			continue
		}
		if release {
			stdLog.Fatalf("%s 过弱或仍为默认值，请在生产环境中配置强随机密钥", name)
		}
		stdLog.Printf("警告: %s 过弱或仍为默认值，建议在生产环境中更换", name)
	}

	if err := app.Run(app.Options{
		Config:               cfg,
		Logger:               logger.S(),
		Signals:              []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:                 mode,
		DefaultAdminUsername: os.Getenv("RS_DEFAULT_ADMIN_USERNAME"),
		DefaultAdminPassword: os.Getenv("RS_DEFAULT_ADMIN_PASSWORD"),
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiCyan + ansiBold + "Repair Shop Back Office" + ansiReset)
	fmt.Println(ansiDim + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
