package main

import (
	"context"
	"github.com/XANi/go-yamlcfg"
	"github.com/XANi/mqttlight/config"
	"github.com/XANi/mqttlight/entity"
	"github.com/XANi/mqttlight/queue"
	"github.com/XANi/mqttlight/store"
	"github.com/XANi/mqttlight/tmpl"
	"github.com/XANi/mqttlight/web"
	"github.com/efigence/go-mon"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
)

var version string
var log *zap.SugaredLogger
var debug = true
var exit = make(chan error, 1)

func init() {
	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	// naive systemd detection. Drop timestamp if running under it
	if os.Getenv("JOURNAL_STREAM") != "" {
		consoleEncoderConfig.TimeKey = ""
	}
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig)
	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return (lvl < zapcore.ErrorLevel) != (lvl == zapcore.DebugLevel && !debug)
	})
	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, os.Stderr, lowPriority),
		zapcore.NewCore(consoleEncoder, os.Stderr, highPriority),
	)
	logger := zap.New(core)
	if debug {
		logger = logger.WithOptions(
			zap.Development(),
			zap.AddCaller(),
			zap.AddStacktrace(highPriority),
		)
	} else {
		logger = logger.WithOptions(
			zap.AddCaller(),
		)
	}
	log = logger.Sugar()
}

func main() {
	defer log.Sync()
	// register internal stats
	mon.RegisterGcStats()
	app := &cli.Command{}
	app.Name = "mqttlight"
	app.Description = "Track and control MQTT lights"
	app.Version = version
	app.HideHelp = true
	log.Infof("Starting %s version: %s", app.Name, version)
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "help, h", Usage: "show help"},
		&cli.BoolFlag{Name: "debug, d", Usage: "enable debug logs"},
		&cli.StringFlag{Name: "config, c",
			Usage: "config file",
		},
		&cli.StringFlag{
			Name:  "listen-addr",
			Usage: "Listen addr for the HTTP API, disabled if empty",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LISTEN_ADDR"),
			),
		},
		&cli.StringFlag{
			Name:  "mqtt-addr",
			Value: "tcp://127.0.0.1:1883",
			Usage: "mqtt broker address",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MQTT_ADDR"),
			),
		},
		&cli.StringFlag{
			Name:  "discovery-prefix",
			Value: "homeassistant",
			Usage: "MQTT discovery prefix, empty disables discovery",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DISCOVERY_PREFIX"),
			),
		},
		&cli.StringFlag{
			Name:  "db-driver",
			Value: "sqlite",
			Usage: "database driver for saved state (sqlite or postgres)",
		},
		&cli.StringFlag{
			Name:  "db-dsn",
			Usage: "database DSN for saved state, state is not saved if empty",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DB_DSN"),
			),
		},
		&cli.StringFlag{
			Name:  "pprof-addr",
			Value: "",
			Usage: "address to run pprof on, disabled by default",
		},
	}
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Bool("help") {
			cli.ShowAppHelp(c)
			os.Exit(1)
		}
		cfgFiles := []string{
			"$HOME/.config/mqttlight/config.yaml",
			"./cfg/config.yaml",
			"/etc/mqttlight/config.yaml",
			c.String("config"),
		}
		cfg := config.Config{
			MQTTAddress:     c.String("mqtt-addr"),
			ListenAddress:   c.String("listen-addr"),
			DiscoveryPrefix: c.String("discovery-prefix"),
			Debug:           c.Bool("debug"),
			PProfAddress:    c.String("pprof-addr"),
			Database: store.Config{
				Driver: c.String("db-driver"),
				DSN:    c.String("db-dsn"),
			},
		}
		if c.String("config") != "" {
			err := yamlcfg.LoadConfig(cfgFiles, &cfg)
			if err != nil {
				log.Fatal(err)
			}
		}
		debug = cfg.Debug
		log.Debug("debug enabled")

		if len(cfg.PProfAddress) > 0 {
			log.Infof("listening pprof on %s", cfg.PProfAddress)
			go func() {
				log.Errorf("failed to start debug listener: %s (ignoring)", http.ListenAndServe(cfg.PProfAddress, nil))
			}()
		}

		engine := tmpl.New(tmpl.Config{Logger: log.Named("tmpl")})
		defer engine.Close()

		var stateStore entity.StateStore
		if cfg.Database.DSN != "" {
			cfg.Database.Logger = log.Named("store")
			st, err := store.New(cfg.Database)
			if err != nil {
				log.Panicf("error opening state store: %s", err)
			}
			defer st.Close()
			stateStore = st
		}

		q, err := queue.New(&queue.Config{
			MQTTAddr:        cfg.MQTTAddress,
			ClientID:        cfg.MQTTClientID,
			DiscoveryPrefix: cfg.DiscoveryPrefix,
			Logger:          log.Named("mq"),
		})
		if err != nil {
			log.Panicf("error starting queue listener: %s", err)
		}
		defer q.Close()

		reg := entity.NewRegistry(entity.Config{
			Publisher:  q,
			Subscriber: q,
			Store:      stateStore,
			Templater:  engine,
			Logger:     log.Named("light"),
		})
		if err := q.Attach(reg); err != nil {
			log.Panicf("error subscribing to discovery: %s", err)
		}
		for id, lc := range cfg.Lights {
			l, err := reg.Upsert(id, lc)
			if err != nil {
				log.Errorf("skipping light %s: %s", id, err)
				continue
			}
			log.Infof("light %s added as %s", id, l.EntityID())
		}

		if len(cfg.ListenAddress) > 0 {
			w, err := web.New(web.Config{
				Logger:     log.Named("web"),
				ListenAddr: cfg.ListenAddress,
				Lights:     reg,
				Health:     q,
			})
			if err != nil {
				log.Panicf("error starting web listener: %s", err)
			}
			go func() {
				exit <- w.Run()
			}()
		}
		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			s := <-sig
			log.Infof("got %s, exiting", s)
			exit <- nil
		}()
		return <-exit
	}
	app.Commands = []*cli.Command{
		{
			Name:  "default-config",
			Usage: "print example config",
			Action: func(ctx context.Context, c *cli.Command) error {
				var cfg config.Config
				os.Stdout.WriteString(cfg.GetDefaultConfig())
				return nil
			},
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
