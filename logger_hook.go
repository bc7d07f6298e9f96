package console

import (
	"io"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// spinnerHook stops the spinner while an entry is written and hands the
// entry to a logger formatted for the current output.
type spinnerHook struct {
	logger  *logrus.Logger
	spinner *spinner.Spinner
}

func newSpinnerHandlerHook(parent *logrus.Logger, spinner *spinner.Spinner, isTerminal, noColor bool) *spinnerHook {
	logger := logrus.New()
	logger.Out = parent.Out
	if parent.Out != io.Discard {
		if isTerminal {
			logger.Formatter = &logrus.TextFormatter{
				ForceColors:      !noColor,
				DisableColors:    noColor,
				DisableTimestamp: true,
			}
			logger.Out = colorable.NewColorableStderr()
		} else {
			logger.Formatter = &logrus.JSONFormatter{}
		}
		logger.Level = parent.GetLevel()
	}
	return &spinnerHook{logger: logger, spinner: spinner}
}

func (hook *spinnerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *spinnerHook) Fire(entry *logrus.Entry) error {
	if hook.spinner.Active() {
		hook.spinner.Stop()
		defer hook.spinner.Start()
	}
	entry.Logger = hook.logger
	return nil
}
