package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpillora/overseer"

	"sms-gateway/pkg/logger"
)

// RestartSignal asks the overseer master to restart the child process.
const RestartSignal = syscall.SIGUSR2

// SetupGracefulShutdown calls cancel on the first shutdown signal.
func SetupGracefulShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		overseer.SIGTERM,
		os.Interrupt,
	)

	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %v. Initiating shutdown...", sig)
		signal.Stop(sigCh)
		cancel()
	}()
}
