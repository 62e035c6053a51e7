// Command linknode runs an always-available network node: it keeps a wireless
// link associated, waits for DHCP configuration, and drives a perpetual TCP
// session loop that recovers from every failure by discarding the session and
// retrying.
//
// The node role (initiator or responder), addressing, timing, and logging are
// configured by a YAML file and LINKNODE_* environment overrides:
//
//	linknode -config /etc/linknode.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arloliu/linknode/config"
	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/netstack"
	"github.com/arloliu/linknode/node"
	"github.com/arloliu/linknode/session"
	"github.com/arloliu/linknode/wifi"
)

// nodeResources holds the process-scoped resources constructed once at
// startup and handed to the tasks that need them. No package-level mutable
// state exists.
type nodeResources struct {
	cfg     *config.Config
	log     logger.Logger
	stack   netstack.Stack
	ind     *node.BoolIndicator
	linkMgr *wifi.Manager
	loop    *session.Loop
}

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "linknode: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := buildResources(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "linknode: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, res); err != nil {
		res.log.Error("node terminated", "error", err)
		os.Exit(1)
	}
}

func buildResources(ctx context.Context, cfg *config.Config) (*nodeResources, error) {
	log := config.NewLogger(cfg)
	logger.SetLogger(log)

	stack := netstack.NewHostStack(cfg.Net.Hostname, cfg.Wifi.Interface, log)

	// one indicator shared by the link and session layers; both drive the
	// same visible output
	ind := node.NewBoolIndicator()

	wifiCfg, err := wifi.NewConfig(cfg.Wifi.SSID, cfg.Wifi.Passphrase,
		wifi.WithRole(cfg.NodeRole()),
		wifi.WithChannel(cfg.Wifi.Channel),
		wifi.WithJoinBackoff(cfg.JoinBackoff()),
		wifi.WithJoinSilentThreshold(cfg.Wifi.JoinSilentThreshold),
		wifi.WithPowerSave(cfg.Wifi.PowerSave),
		wifi.WithIndicator(ind),
		wifi.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("wifi config: %w", err)
	}

	radio := wifi.NewHostRadio(cfg.Wifi.Interface, cfg.ConfigPollInterval())

	linkMgr, err := wifi.NewManager(ctx, wifiCfg, radio)
	if err != nil {
		return nil, fmt.Errorf("link manager: %w", err)
	}

	sessOpts := []session.Option{
		session.WithListenAddress(cfg.ListenAddress()),
		session.WithEstablishTimeout(cfg.EstablishTimeout()),
		session.WithIdleTimeout(cfg.IdleTimeout()),
		session.WithEstablishRetryDelay(cfg.EstablishRetryDelay()),
		session.WithExchangeInterval(cfg.ExchangeInterval()),
		session.WithConfigPollInterval(cfg.ConfigPollInterval()),
		session.WithPayload([]byte(cfg.Session.Payload)),
		session.WithBufferSize(cfg.Session.BufferSize),
		session.WithIndicator(ind),
		session.WithLogger(log),
	}
	if cfg.NodeRole().IsInitiator() {
		sessOpts = append(sessOpts, session.WithRemoteAddress(cfg.RemoteAddress()))
	}

	sessCfg, err := session.NewConfig(cfg.NodeRole(), sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	loop, err := session.NewLoop(sessCfg, stack)
	if err != nil {
		return nil, fmt.Errorf("session loop: %w", err)
	}

	return &nodeResources{
		cfg:     cfg,
		log:     log,
		stack:   stack,
		ind:     ind,
		linkMgr: linkMgr,
		loop:    loop,
	}, nil
}

func run(ctx context.Context, res *nodeResources) error {
	res.log.Info("starting node",
		"role", res.cfg.NodeRole(),
		"hostname", res.cfg.Net.Hostname,
	)

	taskMgr := node.NewTaskManager(ctx, res.log)
	taskCtx := taskMgr.Context()

	// packet pump, runs for the lifetime of the process
	err := taskMgr.Start("netTask", func() bool {
		_ = res.stack.RunPump(taskCtx)
		return false
	})
	if err != nil {
		return fmt.Errorf("start netTask: %w", err)
	}

	// link supervision, re-associates forever
	err = taskMgr.Start("linkTask", func() bool {
		return res.linkMgr.Supervise(taskCtx)
	})
	if err != nil {
		return fmt.Errorf("start linkTask: %w", err)
	}

	// main session task: wait for DHCP once, then loop forever
	err = taskMgr.StartWithCleanup("sessionTask", func() bool {
		if err := res.loop.WaitReady(taskCtx); err != nil {
			return false
		}

		for res.loop.Run(taskCtx) {
		}

		return false
	}, func() {
		_ = res.loop.Close()
	})
	if err != nil {
		return fmt.Errorf("start sessionTask: %w", err)
	}

	<-ctx.Done()
	res.log.Info("shutting down")

	taskMgr.Stop()
	taskMgr.Wait()

	res.log.Info("node stopped")

	return nil
}
