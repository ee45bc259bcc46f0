package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/hashicorp/logutils"
	flags "github.com/jessevdk/go-flags"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"gopkg.in/yaml.v3"

	"github.com/chebizarro/nostr-git-sub002/pkg/cmd"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/cache"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/objstore"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/reconcile"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/service"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/transport"
	"github.com/chebizarro/nostr-git-sub002/pkg/nostrgit/vendor"
)

type options struct {
	Config      string   `short:"c" long:"config" description:"path to config file" default:"~/.nostr-git/config.yaml"`
	Relays      []string `long:"relay" description:"relay URL to fetch/publish events against" env-namespace:"RELAYS"`
	Maintainers []string `long:"maintainer" description:"maintainer pubkey allowed to publish repo-state"`
	CacheDir    string   `long:"cache-dir" default:"~/.nostr-git/cache.db" description:"path to the durable repo cache"`
	Vendor      struct {
		Provider string `yaml:"provider" long:"provider" choice:"github" choice:"gitlab" choice:"gitea" choice:"bitbucket" choice:"" description:"vendor backend used by status --list-prs"`
		BaseURL  string `yaml:"base_url" long:"base-url" env:"BASE_URL" description:"vendor API base URL"`
		Token    string `yaml:"token" long:"token" env:"TOKEN" description:"vendor API token"`
	} `yaml:"vendor" group:"vendor" namespace:"vendor" env-namespace:"VENDOR"`
	Sync   cmd.Sync   `yaml:"-" command:"sync" description:"sync a repo from nostr relays into a local clone"`
	Status cmd.Status `yaml:"-" command:"status" description:"print a repo's cached ref map and commit log"`
	Apply  cmd.Apply  `yaml:"-" command:"apply" description:"apply a patch to a local clone"`
	Push   cmd.Push   `yaml:"-" command:"push" description:"safely push a local ref"`
	Debug  bool       `long:"dbg" env:"DEBUG" description:"turn on debug mode"`
	Trace  struct {
		Enabled bool   `long:"enabled" env:"ENABLED" description:"enable tracing"`
		Host    string `long:"host" env:"HOST" description:"jaeger agent host"`
		Port    string `long:"port" env:"PORT" description:"jaeger agent port"`
	} `yaml:"-" group:"trace" namespace:"trace" env-namespace:"TRACE"`
}

var version = "unknown"

func getVersion() string {
	v, ok := debug.ReadBuildInfo()
	if !ok || v.Main.Version == "(devel)" || v.Main.Version == "" {
		return version
	}
	return v.Main.Version
}

func main() {
	fmt.Printf("nostr-git version: %s\n", getVersion())

	opts := options{}

	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(c flags.Commander, args []string) error {
		setupLog(opts.Debug)
		initTracing(opts.Trace.Enabled, getVersion(), opts.Trace.Host, opts.Trace.Port)

		opts = loadConfig(opts.Config, opts)

		copts, err := initCommon(opts)
		if err != nil {
			return fmt.Errorf("init common options: %w", err)
		}

		c.(interface{ Set(cmd.CommonOpts) }).Set(copts)

		if err = c.Execute(args); err != nil {
			return fmt.Errorf("failed to execute command: %w", err)
		}

		return nil
	}

	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func loadConfig(path string, opts options) options {
	if len(path) == 0 {
		return opts
	}

	if path[:2] == "~/" {
		path = filepath.Join(os.Getenv("HOME"), path[2:])
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[WARN] didn't find config at %s", path)
			return opts
		}
		log.Printf("[WARN] failed to open config at %s: %v", path, err)
		return opts
	}
	defer file.Close()

	var cfg options
	if err = yaml.NewDecoder(file).Decode(&cfg); err != nil {
		log.Printf("[WARN] failed to decode config at %s: %v", path, err)
		return opts
	}

	opts.Vendor = cfg.Vendor
	return opts
}

func initCommon(opts options) (cmd.CommonOpts, error) {
	cacheDir := opts.CacheDir
	if len(cacheDir) >= 2 && cacheDir[:2] == "~/" {
		cacheDir = filepath.Join(os.Getenv("HOME"), cacheDir[2:])
	}
	if err := os.MkdirAll(filepath.Dir(cacheDir), 0o755); err != nil {
		return cmd.CommonOpts{}, fmt.Errorf("create cache dir: %w", err)
	}
	repoCache, err := cache.Open(cacheDir)
	if err != nil {
		return cmd.CommonOpts{}, fmt.Errorf("open repo cache: %w", err)
	}

	c := cmd.CommonOpts{
		Version:     getVersion(),
		Store:       objstore.NewGoGit(),
		Cache:       repoCache,
		Relays:      transport.New(opts.Relays),
		Maintainers: reconcile.NewMaintainerSet(opts.Maintainers),
	}

	if opts.Vendor.Provider != "" {
		c.PrepareService = func(ctx context.Context) (*service.Service, error) {
			v, err := newVendor(ctx, opts.Vendor.Provider, opts.Vendor.Token, opts.Vendor.BaseURL)
			if err != nil {
				return nil, fmt.Errorf("init vendor client: %w", err)
			}
			return service.NewService(ctx, v)
		}
	}

	return c, nil
}

func newVendor(ctx context.Context, provider, token, baseURL string) (vendor.Interface, error) {
	switch provider {
	case "github":
		return vendor.NewGitHub(token, baseURL)
	case "gitlab":
		return vendor.NewGitLab(token, baseURL)
	case "gitea":
		return vendor.NewGitea(ctx, token, baseURL)
	case "bitbucket":
		return vendor.NewBitbucket(token, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown vendor provider %q", provider)
	}
}

func setupLog(dbg bool) {
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: "INFO",
		Writer:   io.Discard,
	}

	logFlags := log.Ltime

	if dbg {
		logFlags = log.Ltime | log.Lmicroseconds | log.Lshortfile
		filter.MinLevel = "DEBUG"

		f, err := os.OpenFile("nostr-git.log", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("[ERROR] error opening log file: %v", err)
		}

		// TODO: close file

		filter.Writer = f
	}

	log.SetFlags(logFlags)
	log.SetOutput(filter)
}

func initTracing(enabled bool, version, host, port string) {
	if !enabled {
		return
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("nostr-git"),
			semconv.ServiceVersionKey.String(version),
		)),
	}

	je, err := jaeger.New(jaeger.WithAgentEndpoint(
		jaeger.WithAgentHost(host),
		jaeger.WithAgentPort(port),
		jaeger.WithLogger(log.Default()),
	))
	if err != nil {
		log.Fatalf("[ERROR] failed to init jaeger exporter: %v", err)
	}
	// TODO: close exporter

	opts = append(opts, sdktrace.WithBatcher(je))

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
}
