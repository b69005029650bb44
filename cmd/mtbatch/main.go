package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/microtravel/internal/client"
)

const (
	envAPIURL     = "MICROTRAVEL_API_URL"
	envToken      = "MICROTRAVEL_TOKEN"
	envUser       = "MICROTRAVEL_USER"
	envUserHeader = "MICROTRAVEL_USER_HEADER"

	defaultAPIURL = "http://localhost:8080/api"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options holds the connection and output settings shared by every command.
type options struct {
	envFile    string
	apiURL     string
	token      string
	user       string
	userHeader string
	verbose    bool
	plain      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "mtbatch",
		Short:         "Run batch operations over MicroTravel images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.load()
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "API base URL (env "+envAPIURL+")")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token (env "+envToken+")")
	root.PersistentFlags().StringVar(&opts.user, "user", "", "user id sent when the API trusts an identity header (env "+envUser+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log item failures and batch events to stderr")
	root.PersistentFlags().BoolVar(&opts.plain, "plain", false, "print progress lines instead of the progress bar")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newSubmitCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newBatchesCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// load fills unset flags from the dotenv file and the environment.
func (o *options) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}

	if o.apiURL == "" {
		o.apiURL = os.Getenv(envAPIURL)
	}
	if o.apiURL == "" {
		o.apiURL = defaultAPIURL
	}
	if o.token == "" {
		o.token = os.Getenv(envToken)
	}
	if o.user == "" {
		o.user = os.Getenv(envUser)
	}
	o.userHeader = os.Getenv(envUserHeader)
	return nil
}

func (o *options) client() (*client.Client, error) {
	var opts []client.Option
	if o.token != "" {
		opts = append(opts, client.WithToken(o.token))
	}
	if o.user != "" {
		opts = append(opts, client.WithUser(o.userHeader, o.user))
	}
	return client.New(o.apiURL, opts...)
}

func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelError
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// plainOutput reports whether progress should be written as lines. The bar
// needs a terminal on w.
func (o *options) plainOutput(w io.Writer) bool {
	if o.plain {
		return true
	}
	f, ok := w.(*os.File)
	return !ok || !isatty.IsTerminal(f.Fd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mtbatch version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "mtbatch", version)
			return nil
		},
	}
}
