// tila 记录键盘事件并在之后把日志解码成文本.
//
//	tila                 采集, 直到所有 xinput 进程退出或收到 SIGINT/SIGTERM
//	tila <log file>      解码一个日志文件并打印结果
//	tila --sessions      列出历史采集会话
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Hara602/tila/internal/capture"
	"github.com/Hara602/tila/internal/config"
	"github.com/Hara602/tila/internal/decoder"
	"github.com/Hara602/tila/internal/discovery"
	"github.com/Hara602/tila/internal/sessiondb"
	"github.com/Hara602/tila/internal/source"
	"github.com/Hara602/tila/internal/store"
	"github.com/Hara602/tila/internal/sysutil"
	"github.com/Hara602/tila/internal/watcher"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	device     string
	dataDir    string
	logLevel   string
	sessions   bool
	help       bool
	args       []string
}

func parseFlags(args []string, stderr io.Writer) (options, *pflag.FlagSet, error) {
	var opts options
	flagSet := pflag.NewFlagSet("tila", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to YAML config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&opts.device, "device", "", "device name substring to capture (overrides config)")
	flagSet.StringVar(&opts.dataDir, "data-dir", "", "directory for capture logs (overrides config)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolVar(&opts.sessions, "sessions", false, "list recorded capture sessions and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return opts, flagSet, err
	}
	opts.args = flagSet.Args()
	if len(opts.args) > 1 {
		return opts, flagSet, fmt.Errorf("expected at most one log file, got %d arguments", len(opts.args))
	}
	return opts, flagSet, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: tila [flags] [log file]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without a log file, captures key events from every matching input device.")
	fmt.Fprintln(w, "With a log file, decodes it and prints the typed text.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}

// loadConfig 先叠加命令行参数, 再统一校验
func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.device != "" {
		cfg.Device = opts.device
	}
	if opts.dataDir != "" {
		cfg.Paths.DataDir = opts.dataDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func main() {
	opts, flagSet, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			printHelp(os.Stdout, flagSet)
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		printHelp(os.Stderr, flagSet)
		os.Exit(2)
	}
	if opts.help {
		printHelp(os.Stdout, flagSet)
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := sysutil.InitLogger(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer sysutil.Log.Sync()
	sysutil.Log.Debug("configuration loaded", zap.String("source", cfg.Source), zap.String("data_dir", cfg.Paths.DataDir))

	switch {
	case opts.sessions:
		if err := listSessions(os.Stdout, cfg.Paths.Index); err != nil {
			sysutil.Log.Fatal("List sessions failed", zap.Error(err))
		}
	case len(opts.args) == 1:
		text, err := decoder.DecodeFile(opts.args[0])
		if err != nil {
			sysutil.Log.Fatal("Decode failed", zap.String("file", opts.args[0]), zap.Error(err))
		}
		fmt.Println(text)
	default:
		runCapture(cfg)
	}
}

func runCapture(cfg config.Config) {
	// 捕获操作系统信号, 停止采集时仍然 flush 日志
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idx, err := sessiondb.Open(cfg.Paths.Index)
	if err != nil {
		sysutil.Log.Warn("Session index unavailable", zap.String("path", cfg.Paths.Index), zap.Error(err))
		idx = nil
	} else {
		defer idx.Close()
	}

	sysutil.Log.Info("Capture starting", zap.String("device", cfg.Device), zap.String("data_dir", cfg.Paths.DataDir))

	opts := capture.Options{
		Device: cfg.Device,
		Lister: discovery.ListerFunc(func(ctx context.Context) (string, error) {
			return source.Run(ctx, cfg.Commands.List)
		}),
		Factory:    source.NewCommand(cfg.Commands.Test),
		Store:      store.New(cfg.Paths.DataDir),
		Index:      idx,
		Watcher:    watcher.New(),
		Mirror:     os.Stdout,
		BufferSize: cfg.Sink.BufferSize,
		Log:        sysutil.Log,
	}

	summary, err := capture.Run(ctx, opts)
	if err != nil {
		sysutil.Log.Fatal("Capture failed", zap.String("log", summary.LogPath), zap.Error(err))
	}

	sysutil.Log.Info("Capture finished",
		zap.String("log", summary.LogPath),
		zap.String("termination", summary.Termination),
		zap.Int("records", summary.Records),
		zap.String("size", humanize.Bytes(uint64(summary.Bytes))),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
}

func listSessions(w io.Writer, indexPath string) error {
	idx, err := sessiondb.Open(indexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	sessions, err := idx.List(0)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no capture sessions recorded")
		return nil
	}
	for _, s := range sessions {
		state := s.Termination
		if s.EndedAt.IsZero() {
			state = "running or crashed"
		}
		fmt.Fprintf(w, "%4d  %-12s  %-20s  %8d records  %8s  devices=%v  %s\n",
			s.ID,
			humanize.Time(s.StartedAt),
			state,
			s.Records,
			humanize.Bytes(uint64(s.Bytes)),
			s.DeviceIDs,
			s.LogPath,
		)
	}
	return nil
}
