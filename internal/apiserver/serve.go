package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/skratchdot/open-golang/open"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

type ServeOpts struct {
	DontOpenBrowser bool
	// Browser names the program to open the console with, empty means
	// the system default.
	Browser string
	// ConsoleURL is what gets opened, it defaults to the API address.
	ConsoleURL string
}

// opener is swapped in tests.
var opener = struct {
	run     func(input string) error
	runWith func(input, app string) error
}{open.Run, open.RunWith}

// Serve runs the API server until ctx is cancelled.
func (s *APIServer) Serve(ctx context.Context, opts ServeOpts) error {
	var op errors.Op = "apiserver.APIServer.Serve"
	server := s.GetHTTPServer()
	logger := s.opts.Logger

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	url := opts.ConsoleURL
	if url == "" {
		url = fmt.Sprintf("http://%s:%s/", s.address, s.port)
	}
	if !opts.DontOpenBrowser {
		s.openBrowser(url, opts.Browser)
	}
	logger.Infof("console API running at: %s", url)

	select {
	case err, ok := <-serveErr:
		if ok {
			return errors.E(op, errors.KindNetwork, fmt.Errorf("error listening on port %s: %w", s.port, err))
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Debugf("unable to close server running on port %s", s.port)
		return errors.E(op, err)
	}
	logger.Infof("server closed on port %s under signal", s.port)
	return nil
}

func (s *APIServer) openBrowser(url, browser string) {
	logger := s.opts.Logger
	if browser != "" {
		if err := opener.runWith(url, browser); err != nil {
			logger.WithError(err).Warnf("failed opening console in '%s', try to open the url manually", browser)
		}
		return
	}
	if err := opener.run(url); err != nil {
		logger.WithError(err).Warn("Error opening browser, try to open the url manually?")
	}
}
