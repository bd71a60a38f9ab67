package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	vrrpconfig "github.com/tokuhirom/go-vrrp/config"
	"github.com/tokuhirom/go-vrrp/pkg/vrrp"
)

var (
	app = kingpin.New("vrrp", "VRRPv3 virtual router daemon")

	runCmd       = app.Command("run", "Run a single VRRP instance")
	runInterface = runCmd.Flag("interface", "Network interface to use").Short('i').Required().String()
	runVRID      = runCmd.Flag("vrid", "Virtual Router ID (1-255)").Short('r').Required().Uint8()
	runVIPs      = runCmd.Flag("vips", "Virtual IP addresses (comma-separated)").Short('v').Required().String()
	runInterval  = runCmd.Flag("advert-int", "Advertisement interval in seconds").Default("1").Float64()
	runOwner     = runCmd.Flag("owner", "Run as the address owner (priority 255, no election)").Bool()
	runPriority  = runCmd.Flag("priority", "Router priority (1-254) when not --owner").Default("100").Uint8()
	runPrimaryIP = runCmd.Flag("primary-ip", "This router's primary IPv4 address, for priority-tie breaking").String()
	runPreempt   = runCmd.Flag("preempt", "Preempt a lower-priority Active on seeing its advertisement").Default("true").Bool()
	runAccept    = runCmd.Flag("accept-mode", "Accept, rather than forward, datagrams addressed to the virtual addresses while Active (this daemon does not capture IP datagrams, so it has no effect on traffic)").Default("false").Bool()

	serveCmd       = app.Command("serve", "Run every VRRP instance named in a config file")
	serveConfig    = serveCmd.Flag("config", "Path to the instances YAML file").Short('c').Required().String()
	serveMetrics   = serveCmd.Flag("metrics-addr", "Address to serve Prometheus metrics on").Default(":9110").String()

	versionCmd = app.Command("version", "Show version information")
)

// Version is the daemon's release version.
const Version = "0.2.0"

func main() {
	app.HelpFlag.Short('h')
	app.Version(Version)

	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case runCmd.FullCommand():
		runSingle()
	case serveCmd.FullCommand():
		serve()
	case versionCmd.FullCommand():
		showVersion()
	}
}

func newLogger() log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return logger
}

func buildParameters(vrid uint8, vipsCSV string, intervalSeconds float64, owner bool, priority uint8, primaryIP string, preempt, accept bool) (*vrrp.Parameters, error) {
	id, err := vrrp.NewVRID(vrid)
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, vip := range strings.Split(vipsCSV, ",") {
		ips = append(ips, net.ParseIP(strings.TrimSpace(vip)))
	}
	addresses, err := vrrp.NewVirtualAddresses(ips)
	if err != nil {
		return nil, err
	}

	interval := vrrp.IntervalFromSeconds(uint32(intervalSeconds))

	mode := vrrp.OwnerMode()
	if !owner {
		mode = vrrp.NewBackupMode(net.ParseIP(primaryIP), vrrp.Priority(priority), preempt, accept)
	}

	return vrrp.NewParameters(id, addresses, interval, mode)
}

func runSingle() {
	logger := newLogger()

	params, err := buildParameters(*runVRID, *runVIPs, *runInterval, *runOwner, *runPriority, *runPrimaryIP, *runPreempt, *runAccept)
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(1)
	}

	instance, err := vrrp.NewInstance(params, *runInterface, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to create instance", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := instance.Start(ctx); err != nil {
		level.Error(logger).Log("msg", "failed to start instance", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "vrrp instance started", "interface", *runInterface, "vrid", *runVRID)

	runUntilSignal(ctx, cancel, func() {
		level.Info(logger).Log("msg", "state", "state", instance.State().String())
	})

	if err := instance.Stop(); err != nil {
		level.Error(logger).Log("msg", "error stopping instance", "err", err)
	}
}

func serve() {
	logger := newLogger()

	cfg, err := vrrpconfig.Load(*serveConfig)
	if err != nil {
		level.Error(logger).Log("msg", "invalid config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instances := make([]*vrrp.Instance, 0, len(cfg.Instances))
	for _, ic := range cfg.Instances {
		params, err := ic.Parameters()
		if err != nil {
			level.Error(logger).Log("msg", "invalid instance config", "vrid", ic.VRID, "err", err)
			os.Exit(1)
		}

		instance, err := vrrp.NewInstance(params, ic.Interface, logger)
		if err != nil {
			level.Error(logger).Log("msg", "failed to create instance", "vrid", ic.VRID, "err", err)
			os.Exit(1)
		}

		if err := instance.Start(ctx); err != nil {
			level.Error(logger).Log("msg", "failed to start instance", "vrid", ic.VRID, "err", err)
			os.Exit(1)
		}

		instances = append(instances, instance)
		level.Info(logger).Log("msg", "vrrp instance started", "interface", ic.Interface, "vrid", ic.VRID)
	}

	go serveMetricsHTTP(*serveMetrics, logger)

	runUntilSignal(ctx, cancel, nil)

	for _, instance := range instances {
		if err := instance.Stop(); err != nil {
			level.Error(logger).Log("msg", "error stopping instance", "err", err)
		}
	}
}

func serveMetricsHTTP(addr string, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		level.Error(logger).Log("msg", "metrics server exited", "err", err)
	}
}

// runUntilSignal blocks until SIGINT/SIGTERM, calling tick (if
// non-nil) every five seconds in the meantime.
func runUntilSignal(ctx context.Context, cancel context.CancelFunc, tick func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var ticker *time.Ticker
	var tickC <-chan time.Time
	if tick != nil {
		ticker = time.NewTicker(5 * time.Second)
		tickC = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-sigCh:
			cancel()
			return
		case <-ctx.Done():
			return
		case <-tickC:
			tick()
		}
	}
}

func showVersion() {
	fmt.Printf("vrrp version %s\n", Version)
	fmt.Println("A VRRPv3 virtual router daemon")
}
