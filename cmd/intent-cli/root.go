package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yashubustudio/intentclassifier/intent"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	v          *viper.Viper
	configPath string
	verbose    bool
	session    string

	cfg    intent.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "intent-cli",
		Short: "Hybrid rule and neural intent classification for restaurant chat",
		Long: `intent-cli scores customer utterances against the restaurant intent catalog.

Rule-based patterns and an external neural classifier are fused per intent
(0.3 rule, 0.7 neural). When the neural service is unreachable the rule-based
scores are still returned.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default is ./intent.yaml)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging of per-intent scores")
	pf.StringVar(&c.session, "session", "", "conversation session id (default is a random UUID)")
	pf.String("backend", "", "neural backend: triton, onnx or none (or set INTENT_NEURAL_BACKEND)")
	pf.String("url", "", "Triton server address (or set INTENT_NEURAL_URL)")
	pf.Duration("timeout", 0, "neural call timeout (or set INTENT_NEURAL_TIMEOUT)")
	pf.Float64("threshold", 0, "minimum fused score for a top intent (or set INTENT_THRESHOLD)")
	pf.String("profiles", "", "intent profile override file (or set INTENT_RULES_PROFILE_FILE)")

	_ = c.v.BindPFlag("neural.backend", pf.Lookup("backend"))
	_ = c.v.BindPFlag("neural.url", pf.Lookup("url"))
	_ = c.v.BindPFlag("neural.timeout", pf.Lookup("timeout"))
	_ = c.v.BindPFlag("threshold", pf.Lookup("threshold"))
	_ = c.v.BindPFlag("rules.profile_file", pf.Lookup("profiles"))

	root.AddCommand(
		newClassifyCmd(c),
		newTopCmd(c),
		newBatchCmd(c),
		newCatalogCmd(),
		newRulesCmd(),
		newConfigCmd(c),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := intent.LoadConfigFrom(c.v, c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	c.logger, err = buildLogger(cfg.Log, c.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if c.session == "" {
		c.session = uuid.NewString()
	}
	return nil
}

// classifier builds a Classifier from the loaded configuration. The caller
// must Close it.
func (c *cli) classifier() (*intent.Classifier, error) {
	clf, err := intent.NewFromConfig(c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}
	return clf, nil
}

func buildLogger(cfg intent.LogConfig, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	config.Level = zap.NewAtomicLevelAt(level)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}
