package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hxlong2024/LinkChanger/internal"
	"github.com/hxlong2024/LinkChanger/jobs"
	"github.com/hxlong2024/LinkChanger/utils"
	"github.com/hxlong2024/LinkChanger/worker"
)

var (
	outputPath  string
	quarkCookie string
	baiduCookie string
	proxyURL    string
	quiet       bool
	debug       bool
	logLevel    string
	logFile     string
	config      *internal.Config
)

const pollEvery = 200 * time.Millisecond

var rootCmd = &cobra.Command{
	Use:     "linkchanger [OPTIONS] [FILE]",
	Short:   "Re-share cloud drive links through your own accounts",
	Version: "v1.0.0",
	Long: `LinkChanger scans a text for Quark and Baidu netdisk share links,
transfers each shared resource into your own account, publishes a fresh
share for it and rewrites the text with the new links. Everything else
in the text is left untouched.

Examples:
  linkchanger post.txt
  cat post.txt | linkchanger
  linkchanger -o rewritten.txt --proxy socks5://127.0.0.1:1080 post.txt

Environment Variables:
  LINKCHANGER_QUARK_COOKIE   Quark account cookie
  LINKCHANGER_BAIDU_COOKIE   Baidu account cookie
  LINKCHANGER_QUARK_ROOT     Quark destination folder path
  LINKCHANGER_BAIDU_ROOT     Baidu destination folder path
  LINKCHANGER_PROXY          Proxy URL
  LINKCHANGER_BARK_KEY       Bark push key for completion notifications
  LINKCHANGER_PUSHDEER_KEY   PushDeer push key for completion notifications`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		internal.LogInfo("LinkChanger starting up")
		internal.LogDebug("Configuration loaded: quark=%v, baidu=%v, proxy=%q, debug=%v, quiet=%v",
			config.Quark.Configured(), config.Baidu.Configured(), config.ProxyURL, config.EnableDebug, config.QuietMode)

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("input text is empty")
		}

		if !config.Quark.Configured() && !config.Baidu.Configured() {
			return fmt.Errorf("no provider configured: set LINKCHANGER_QUARK_COOKIE or LINKCHANGER_BAIDU_COOKIE")
		}

		manager := jobs.NewManager(config.JobRetention)
		runner := worker.NewRunner(config, manager)

		jobID := manager.Create()
		internal.LogInfo("Job %s created", jobID)

		go runner.Run(cmd.Context(), jobID, text)

		job, err := observeJob(manager, jobID)
		if err != nil {
			return err
		}

		if err := writeResult(job.ResultText); err != nil {
			return err
		}

		if !quiet && job.Summary != nil {
			fmt.Fprintf(os.Stderr, "\n%d/%d link(s) republished in %s\n",
				job.Summary.Succeeded, job.Summary.Total, job.Summary.Duration)
		}

		if job.Summary != nil && job.Summary.Succeeded < job.Summary.Total {
			return fmt.Errorf("%d of %d link(s) could not be republished",
				job.Summary.Total-job.Summary.Succeeded, job.Summary.Total)
		}
		return nil
	},
}

// observeJob polls the registry until the job finishes, echoing log
// lines and drawing the progress bar along the way.
func observeJob(manager *jobs.Manager, jobID string) (*jobs.Job, error) {
	var tracker *utils.JobTracker
	printed := 0

	for {
		job, err := manager.Get(jobID)
		if err != nil {
			return nil, fmt.Errorf("job vanished: %v", err)
		}

		for ; printed < len(job.Logs); printed++ {
			entry := job.Logs[printed]
			if !quiet {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", strings.ToUpper(entry.Kind), entry.Message)
			}
		}

		if tracker == nil && job.Progress.Total > 0 {
			tracker = utils.NewJobTracker(job.Progress.Total, quiet)
		}
		if tracker != nil {
			tracker.Update(job.Progress.Current)
		}

		if job.Status.IsTerminal() {
			if tracker != nil {
				tracker.Finish()
			}
			return job, nil
		}

		time.Sleep(pollEvery)
	}
}

// readInput returns the text to process, from the file argument or
// from stdin when no file (or "-") is given.
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %v", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %v", args[0], err)
	}
	return string(data), nil
}

// writeResult writes the rewritten text to the output file or stdout.
func writeResult(text string) error {
	if outputPath == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %v", outputPath, err)
	}
	internal.LogInfo("Result written to %s", outputPath)
	return nil
}

// loadConfiguration loads configuration from environment variables and
// merges it with CLI flags.
func loadConfiguration() error {
	config = internal.DefaultConfig()
	config.LoadFromEnv()

	if quarkCookie != "" {
		config.Quark.Cookie = quarkCookie
	}
	if baiduCookie != "" {
		config.Baidu.Cookie = baiduCookie
	}
	if proxyURL != "" {
		config.ProxyURL = proxyURL
	}

	if debug {
		config.EnableDebug = true
		config.LogLevel = "debug"
	}
	if quiet {
		config.QuietMode = true
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}

	return config.Validate()
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write rewritten text to file instead of stdout")
	rootCmd.Flags().StringVar(&quarkCookie, "quark-cookie", "", "Quark account cookie (env: LINKCHANGER_QUARK_COOKIE)")
	rootCmd.Flags().StringVar(&baiduCookie, "baidu-cookie", "", "Baidu account cookie (env: LINKCHANGER_BAIDU_COOKIE)")
	rootCmd.Flags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS proxy URL (env: LINKCHANGER_PROXY)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bar and log output")

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging (env: LINKCHANGER_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: LINKCHANGER_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (env: LINKCHANGER_LOG_FILE)")
}

// Execute runs the root command with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
