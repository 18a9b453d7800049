package app

import (
	"fmt"

	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yashubustudio/intentclassifier/intent"
)

// Run loads ./intent.yaml (or defaults) and starts the desktop playground.
func Run() error {
	cfg, err := intent.LoadConfig("")
	if err != nil {
		return err
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	base, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer base.Sync()

	u := newUIState(cfg)
	logger := newTeeLogger(base.Core(), u.panel, level)
	u.logger = logger.Named("ui")

	clf, err := intent.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer clf.Close()

	a := fyneapp.NewWithID(fyneAppID)
	u.build(a, clf)
	u.w.ShowAndRun()
	return nil
}
