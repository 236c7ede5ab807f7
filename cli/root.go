package cli

import (
	"fmt"
	"time"

	"github.com/ezenkico/deploy-commander/vectorstack/config"
	"github.com/ezenkico/deploy-commander/vectorstack/interfaces"
	"github.com/ezenkico/deploy-commander/vectorstack/logging"
	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/ezenkico/deploy-commander/vectorstack/services/agent"
	"github.com/ezenkico/deploy-commander/vectorstack/services/descriptor"
	"github.com/ezenkico/deploy-commander/vectorstack/services/docker"
	"github.com/spf13/cobra"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg *config.Config

	file     string
	envFile  string
	project  string
	logLevel string
	output   string

	newPlatform func(cfg *config.Config) (interfaces.Platform, error)
	now         func() time.Time
}

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	return newRootCommand(&app{newPlatform: selectPlatform, now: time.Now}, version, commit, date)
}

func newRootCommand(a *app, version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vectorstack",
		Short: "Run a vector database with a local embedding service",
		Long: `vectorstack applies a two-service descriptor to a Docker Engine: a Weaviate
vector store and a text2vec-transformers inference service it calls for
embeddings. Without --file the built-in descriptor is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&a.file, "file", "f", "", "descriptor path (default: built-in)")
	rootCmd.PersistentFlags().StringVarP(&a.project, "project", "p", "", "project name prefixed to every container, network and volume")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "file with interpolation variables (default: .env beside the descriptor)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "", "output format (text, json)")

	// Add subcommands
	rootCmd.AddCommand(newUpCommand(a))
	rootCmd.AddCommand(newDownCommand(a))
	rootCmd.AddCommand(newPullCommand(a))
	rootCmd.AddCommand(newStatusCommand(a))
	rootCmd.AddCommand(newLogsCommand(a))
	rootCmd.AddCommand(newServiceCommand(a, "start", "Start a stopped service", interfaces.Platform.StartService))
	rootCmd.AddCommand(newServiceCommand(a, "stop", "Stop a service, keeping its container and data", interfaces.Platform.StopService))
	rootCmd.AddCommand(newServiceCommand(a, "restart", "Restart a service, keeping its data", interfaces.Platform.RestartService))
	rootCmd.AddCommand(newConfigCommand(a))
	rootCmd.AddCommand(newVerifyCommand(a))
	rootCmd.AddCommand(newBackupCommand(a))
	rootCmd.AddCommand(newVolumeCommand(a))
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// configure layers flags over the environment and defaults, then sets up
// logging.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.File = a.file
	}
	if flags.Changed("env-file") {
		cfg.EnvFile = a.envFile
	}
	if flags.Changed("project") {
		cfg.Project = a.project
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("output") {
		cfg.Output = a.output
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Configure(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// loadStack reads the descriptor. Unless a project was configured, the
// descriptor's name becomes the project for the rest of the command.
func (a *app) loadStack() (*models.Stack, error) {
	stack, err := descriptor.NewLoader(a.cfg.EnvFile).Load(a.cfg.File)
	if err != nil {
		return nil, err
	}
	if a.cfg.Project == "" {
		a.cfg.Project = a.cfg.ProjectFor(stack.Name)
	}
	return stack, nil
}

// resolveProject settles the project for commands that do not otherwise
// need the descriptor.
func (a *app) resolveProject() error {
	if a.cfg.Project != "" {
		return nil
	}
	_, err := a.loadStack()
	return err
}

func (a *app) platform() (interfaces.Platform, error) {
	return a.newPlatform(a.cfg)
}

// requireService fails unless name is a service of the stack.
func requireService(stack *models.Stack, name string) error {
	if _, ok := stack.Services[name]; !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	return nil
}

func selectPlatform(cfg *config.Config) (interfaces.Platform, error) {
	var comm *agent.AgentCommunication
	if cfg.Agent.Enabled() {
		c, err := agent.New(cfg.Agent.Endpoint, cfg.Agent.Token)
		if err != nil {
			return nil, err
		}
		comm = c
	}

	switch cfg.Platform {
	case "docker":
		return docker.NewDockerPlatform(comm)
	default:
		return nil, fmt.Errorf("%q is not a valid platform", cfg.Platform)
	}
}
