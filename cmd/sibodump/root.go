package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwarrender/sibo-ssd-dump/internal/config"
	"github.com/rwarrender/sibo-ssd-dump/logger"
)

type rootFlags struct {
	configPath string

	serial   string
	driver   string
	baud     int
	timeout  time.Duration
	settle   time.Duration
	dumpPath string

	firstBlockOnly bool
	asic4          bool
	retries        int
	stream         bool

	logLevel   string
	logConsole bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:   "sibodump",
		Short: "Dump Psion SIBO SSD images through a serial bridge",
		Long: "Reads the SSD descriptor through the bridge, prints what it describes and,\n" +
			"with --dump, copies every block of every device to a raw image file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			setupLogger(cfg, stderr)

			return runDump(cmd.Context(), stdout, cfg, f.dumpPath)
		},
	}

	fl := root.Flags()
	fl.StringVarP(&f.serial, "serial", "s", "", "serial device of the bridge, or tcp://host:port")
	fl.StringVarP(&f.dumpPath, "dump", "d", "", "dump to file")
	fl.BoolVarP(&f.firstBlockOnly, "firstblockonly", "f", false, "only pull the first block (256 bytes)")
	fl.BoolVarP(&f.asic4, "asic4", "4", false, "allow native ASIC4 mode for compatible SSDs (experimental)")
	fl.StringVar(&f.driver, "driver", "", "transport driver: jacobsa, goburrow or tcp (default from address)")
	fl.IntVar(&f.baud, "baud", 0, "serial baud rate (default 115200)")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-byte read timeout, 0 waits forever")
	fl.DurationVar(&f.settle, "settle", 0, "wait after opening the port for the bridge to reset (default 2s)")
	fl.IntVar(&f.retries, "retries", 0, "fetch a short block again up to this many times")
	fl.BoolVar(&f.stream, "stream", false, "use the bridge's dump-all command instead of per-block fetches")

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML config file; flags override it")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&f.logConsole, "log-console", true, "human readable logs instead of JSON")

	root.AddCommand(newEmulateCmd(stderr, &f))

	return root
}

// resolve loads the config file, if any, and applies explicitly set flags
// over it.
func (f *rootFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("serial") {
		cfg.Serial.Address = f.serial
	}
	if changed("driver") {
		cfg.Serial.Driver = f.driver
	}
	if changed("baud") {
		cfg.Serial.BaudRate = f.baud
	}
	if changed("timeout") {
		cfg.Serial.ReadTimeoutMs = int(f.timeout / time.Millisecond)
	}
	if changed("settle") {
		cfg.Serial.SettleMs = int(f.settle / time.Millisecond)
	}
	if changed("firstblockonly") {
		cfg.Dump.FirstBlockOnly = f.firstBlockOnly
	}
	if changed("asic4") {
		cfg.Dump.ASIC4 = f.asic4
	}
	if changed("retries") {
		cfg.Dump.Retries = f.retries
	}
	if changed("stream") {
		cfg.Dump.Stream = f.stream
	}
	f.applyLog(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)

	return cfg, nil
}

// resolveLog is resolve for commands that only use the log section.
func (f *rootFlags) resolveLog(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	f.applyLog(cmd, cfg)

	if err := config.ValidateLog(cfg.Log); err != nil {
		return nil, err
	}
	config.Normalize(cfg)

	return cfg, nil
}

func (f *rootFlags) load() (*config.Config, error) {
	if f.configPath == "" {
		return config.Default(), nil
	}

	return config.Load(f.configPath)
}

func (f *rootFlags) applyLog(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-console") {
		cfg.Log.Console = f.logConsole
	}
}

func setupLogger(cfg *config.Config, w io.Writer) {
	level, _ := logger.ParseLevel(cfg.Log.Level)
	logger.SetDefault(logger.New(logger.Options{
		Level:   level,
		Console: cfg.Log.Console,
		Output:  w,
	}))
}
