package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/avask/linechat/internal/chat"
	"github.com/avask/linechat/internal/config"
	"github.com/avask/linechat/internal/wsbridge"
	"github.com/avask/linechat/pkg/sshserver"
	"github.com/avask/linechat/pkg/tcpserver"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	addr := flag.String("addr", "", "TCP listen address (overrides config)")
	sshAddr := flag.String("ssh-addr", "", "SSH listen address (enables the SSH transport)")
	wsAddr := flag.String("ws-addr", "", "WebSocket listen address (enables the WebSocket transport)")
	hostKeyPath := flag.String("host-key", "", "Path to the SSH host private key (auto-generated if missing)")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}
	applyFlags(&cfg, *addr, *sshAddr, *wsAddr, *hostKeyPath)

	queue := buildQueue(cfg)
	broadcaster := chat.NewBroadcaster(queue, chat.WithLogger(logger))
	relay := chat.NewRelay(queue, broadcaster, logger, chat.WithWriteTimeout(cfg.WriteTimeout.Std()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	color.New(color.Bold).Printf("linechat relay, TCP on %s\n", cfg.Addr)

	broadcasterDone := make(chan struct{})
	go func() {
		relay.Run()
		close(broadcasterDone)
	}()

	if cfg.SSH.Addr != "" {
		signer, err := sshserver.LoadOrGenerateSigner(cfg.SSH.HostKey)
		if err != nil {
			logger.Fatalf("failed to prepare SSH host key: %v", err)
		}
		sshSrv := sshserver.New(cfg.SSH.Addr, signer, logger)
		go func() {
			err := sshSrv.ListenAndServe(ctx, func(stream io.ReadWriteCloser, remote string) {
				if err := relay.Join(stream, remote); err != nil {
					logger.Printf("admitting SSH client %s failed: %v", remote, err)
					_ = stream.Close()
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Fatalf("SSH server stopped with error: %v", err)
			}
		}()
	}

	if cfg.WS.Addr != "" {
		bridge := wsbridge.New(cfg.WS.Addr, relay.Join, logger)
		go func() {
			if err := bridge.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Fatalf("WebSocket bridge stopped with error: %v", err)
			}
		}()
	}

	server := tcpserver.New(cfg.Addr, logger)
	err = server.ListenAndServe(ctx, relay.HandleConn)

	relay.Shutdown()
	<-broadcasterDone

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("server stopped with error: %v", err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyFlags lets the command line override individual config fields,
// matching the file's semantics: an empty flag leaves the field alone.
func applyFlags(cfg *config.Config, addr, sshAddr, wsAddr, hostKey string) {
	if addr != "" {
		cfg.Addr = addr
	}
	if sshAddr != "" {
		cfg.SSH.Addr = sshAddr
	}
	if wsAddr != "" {
		cfg.WS.Addr = wsAddr
	}
	if hostKey != "" {
		cfg.SSH.HostKey = hostKey
	}
}

func buildQueue(cfg config.Config) *chat.Queue {
	options := []chat.QueueOption{}
	if cfg.Queue.Capacity > 0 {
		options = append(options, chat.WithCapacity(cfg.Queue.Capacity))
		if cfg.Queue.Overflow == config.OverflowDrop {
			options = append(options, chat.WithOverflow(chat.OverflowDrop))
		}
	}
	return chat.NewQueue(options...)
}
