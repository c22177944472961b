package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/megamake/roleplay/internal/platform/config"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
)

const (
	exitOK    = 0
	exitUsage = 2
	exitError = 1
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	ConfigPath   string
	EnvFile      string
	LogLevel     string
	Provider     string
	Net          bool
	AllowDomains []string
}

// Run executes the command line and returns the process exit code.
func Run(argv []string) int {
	return run(argv[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", color.RedString("error:"), err)
		if apperrors.IsUsage(err) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

// NewRootCmd builds the command tree.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "roleplay",
		Short: "Stakeholder persuasion role-play simulator",
		Long: `roleplay lets a student nurse practice persuading Sam Richards, a skeptical
Operations Manager at a County Corrections Facility, to support a flu
vaccination program. Speech is transcribed, answered in character and voiced.

Examples:
  roleplay serve
  roleplay turn --audio opening.wav --audio followup.m4a --out ./session
  roleplay --provider stub turn --audio hello.wav`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.NewUsage(err.Error())
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "YAML configuration file")
	pf.StringVar(&opts.EnvFile, "env-file", "", "dotenv file holding the API key (default: ./.env, optional)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.Provider, "provider", "", "hosted provider: openai or stub")
	pf.BoolVar(&opts.Net, "net", true, "allow outbound calls to hosted services")
	pf.StringArrayVar(&opts.AllowDomains, "allow-domain", nil, "allowed outbound domain (repeatable)")

	root.AddCommand(
		newServeCmd(opts),
		newTurnCmd(opts),
		newPersonaCmd(),
		newVerifyCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// load reads the configuration and applies global and command overrides.
func (o *globalOptions) load(cmd *cobra.Command, extra func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:    o.ConfigPath,
		EnvFile: o.EnvFile,
		Override: func(c *config.Config) {
			if o.LogLevel != "" {
				c.Logging.Level = o.LogLevel
			}
			if o.Provider != "" {
				c.OpenAI.Provider = o.Provider
			}
			if f := cmd.Flag("net"); f != nil && f.Changed {
				c.Network.Enabled = o.Net
			}
			if len(o.AllowDomains) > 0 {
				c.Network.AllowDomains = o.AllowDomains
			}
			if extra != nil {
				extra(c)
			}
		},
	})
	if err != nil {
		return nil, apperrors.NewUsage(err.Error())
	}
	return cfg, nil
}
