package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"materialbridge/internal/config"
	"materialbridge/internal/logger"
	"materialbridge/internal/pipeline"
	"materialbridge/internal/server"
	"materialbridge/internal/util"
)

var (
	input      = flag.String("in", "", "输入工作簿；为空时启动 HTTP 服务")
	output     = flag.String("out", "", "输出工作簿 (默认: 输入目录下 processed_<文件名>)")
	format     = flag.String("format", "text", "缺料输出格式: text, json, csv")
	needSource = flag.String("need", "", "缺料推演需求来源: explosion, ledger (覆盖配置文件)")
	lenient    = flag.Bool("lenient", false, "日期列对不齐时仅警告")
	bomSheet   = flag.String("bom", "", "BOM 工作表名")
	planSheet  = flag.String("plan", "", "计划工作表名")
	reqSheet   = flag.String("requirement", "", "需求台账工作表名")
	covSheet   = flag.String("coverage", "", "覆盖工作表名")

	port    = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode = flag.Bool("dev", false, "开发模式")
	dataDir = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败，使用默认配置: %v\n", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	if err := logger.Init(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Log.Environment,
		ServiceName: "materialbridge",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *input != "" {
		code := runOnce(cfg)
		logger.Sync()
		os.Exit(code)
	}
	serve(cfg)
}

// runOnce 命令行单次分析，返回进程退出码
func runOnce(cfg *config.AppConfig) int {
	// 参数在运行前校验，避免写出工作簿后才报错
	if err := applyRunFlags(cfg, *needSource, *format); err != nil {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
		return 2
	}

	opts := pipeline.OptionsFromConfig(cfg)
	opts.InputPath = *input
	opts.OutputPath = *output
	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(filepath.Dir(*input), pipeline.ProcessedName(*input))
	}
	opts.Sheets = opts.Sheets.Merge(pipeline.Sheets{
		BOM:         *bomSheet,
		Plan:        *planSheet,
		Requirement: *reqSheet,
		Coverage:    *covSheet,
	})
	if *lenient {
		opts.StrictAlignment = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.NewCoordinator(logger.Get()).Run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "分析失败: %v\n", err)
		return 1
	}
	if err := writeOutput(os.Stdout, result, *format); err != nil {
		fmt.Fprintf(os.Stderr, "输出失败: %v\n", err)
		return 1
	}
	return 0
}

// applyRunFlags 将 -need 写入配置并校验，同时检查 -format
func applyRunFlags(cfg *config.AppConfig, need, format string) error {
	if need != "" {
		cfg.Planning.NeedSource = need
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return checkFormat(format)
}

// serve 启动 HTTP 服务并等待退出信号
func serve(cfg *config.AppConfig) {
	fmt.Println("==========================================")
	fmt.Println("  MaterialBridge - 物料缺料分析工具")
	fmt.Println("==========================================")

	log := logger.Get()

	// 确保数据目录存在
	workDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Warn("创建数据目录失败，使用系统临时目录", zap.Error(err))
		workDir = filepath.Join(os.TempDir(), "materialbridge")
	} else {
		fmt.Printf("数据目录: %s\n", workDir)
	}

	srv := server.NewServer(cfg, workDir)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := util.LocalURL(cfg.Server.Port)

	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 打开浏览器
	if !cfg.Server.DevMode {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowser(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("开发模式: 请访问 %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("关闭服务失败", zap.Error(err))
	}
}
