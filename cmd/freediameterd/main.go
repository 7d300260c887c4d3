// Command freediameterd runs the Diameter core: it loads the dictionary
// and policy configuration, starts the router (listener, peers table,
// routing-out), and waits for a shutdown signal.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"freediameterd/config"
	"freediameterd/diammsg"
	"freediameterd/handler"
	"freediameterd/hooks"
	"freediameterd/router"
)

func main() {
	bootPtr := flag.String("boot", "resources/searchRules.json", "file or http URL with configuration search rules")
	instancePtr := flag.String("instance", "", "name of this configuration instance")
	flag.Parse()

	config.InitPolicyConfigInstance(*bootPtr, *instancePtr, true)
	logger := config.GetLogger()

	mgr := router.NewManager(*instancePtr)

	// Sample dispatch-pool registration: any request with a non-zero
	// Application-Id and no more specific rule falls through to the bundled
	// test handler instead of being forwarded, the same role app_test plays
	// in the original daemon. Application-Id 0 requests never reach the pool.
	mgr.RegisterHandler(0, false, 0, false, nil, handler.EmptyDiameterHandler)

	ext := &hooks.Extension{ConfigInstanceName: *instancePtr, Hooks: hooks.Default}
	loadExtensions(ext)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)

	for {
		sig := <-sigChan
		if sig == syscall.SIGUSR2 {
			// SIGUSR2 is translated into a Trigger event for any
			// extension registered with hooks.RegisterTrigger; the
			// daemon itself never blocks on it.
			hooks.FireTrigger(0)
			continue
		}

		logger.Infof("received signal %s, shutting down", sig)
		break
	}

	hooks.UnloadAll()
	mgr.Close()
	<-mgr.ManagerDoneChannel
	logger.Info("freediameterd stopped")
}

// loadExtensions registers every extension this binary bundles through
// the same hooks.Load path a dynamically loaded plugin would use.
func loadExtensions(ext *hooks.Extension) {
	logger := config.GetLogger()

	if err := hooks.Load("audit-log", func(ext *hooks.Extension, conf string) error {
		ext.Hooks.Register([]hooks.HookType{hooks.MessageDropped, hooks.PeerConnected, hooks.PeerDisconnected},
			func(t hooks.HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *hooks.PerMessageData, regdata interface{}) {
				config.GetLogger().Infof("audit: %s peer=%s detail=%v", t, peerIdentity, other)
			}, nil)
		return nil
	}, nil, ext, ""); err != nil {
		logger.Warnf("could not load audit-log extension: %s", err)
	}
}
