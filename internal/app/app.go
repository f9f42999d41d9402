package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"suffixrank/internal/abuse"
	"suffixrank/internal/app/version"
	"suffixrank/internal/config"
	"suffixrank/internal/database"
	"suffixrank/internal/export"
	"suffixrank/internal/feeds"
	"suffixrank/internal/lookup"
	"suffixrank/internal/suffix"
	"suffixrank/internal/support"
)

const usage = "usage: suffixrank [-config path] [-debug] [-version] abuse|psl|all|lookup <host>..."

var errUsage = errors.New(usage)

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	configFlag := flag.String("config", "", "Path to a JSON or YAML settings file")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	versionFlag := flag.Bool("version", false, "Print build information and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Get())
		return nil
	}

	configureLogging(*debugFlag)
	log.Debug("Starting", "version", version.Get().BuildVersion)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{cfg: cfg, out: os.Stdout, verboseSQL: *debugFlag}
	return r.dispatch(ctx, flag.Args())
}

func configureLogging(debug bool) {
	level := log.InfoLevel
	if raw := support.GetEnv("LOG_LEVEL", ""); raw != "" {
		parsed, err := log.ParseLevel(strings.ToLower(raw))
		if err != nil {
			log.Warn("invalid log level override", "env", "LOG_LEVEL", "value", raw)
		} else {
			level = parsed
		}
	}
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

type runner struct {
	cfg        config.Config
	out        io.Writer
	verboseSQL bool

	// fetcher overrides the HTTP fetcher built from cfg.
	fetcher feeds.Fetcher
}

func (r *runner) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "abuse":
		return r.runAbuse(ctx)
	case "psl":
		return r.runSuffixes(ctx)
	case "all":
		if err := r.runAbuse(ctx); err != nil {
			return err
		}
		return r.runSuffixes(ctx)
	case "lookup":
		if len(args) < 2 {
			return fmt.Errorf("lookup needs at least one host: %w", errUsage)
		}
		return r.runLookup(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func (r *runner) newFetcher() feeds.Fetcher {
	if r.fetcher != nil {
		return r.fetcher
	}
	return feeds.NewHTTPFetcher(
		r.cfg.FetchTimeout(),
		feeds.WithMaxBytes(r.cfg.Fetch.MaxBytes),
		feeds.WithUserAgent(r.cfg.Fetch.UserAgent),
	)
}

func (r *runner) runAbuse(ctx context.Context) error {
	sinks := []abuse.Sink{export.NewCSVSink(r.cfg.Abuse.OutputPath)}

	if r.cfg.Redis.Enabled {
		client, err := support.GetRedisClient(ctx, r.cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to get redis client: %w", err)
		}
		defer func() {
			if err := support.CloseRedisClient(); err != nil {
				log.Warn("error closing redis client", "error", err)
			}
		}()
		sinks = append(sinks, export.NewRedisSink(client, r.cfg.Redis.Key))
	}

	outcome, err := abuse.NewPipeline(r.cfg.Abuse, r.newFetcher(), sinks...).Run(ctx)
	if err != nil {
		return err
	}

	log.Info("Abuse scores written", "path", r.cfg.Abuse.OutputPath, "tlds", len(outcome.Scores), "max_count", outcome.MaxCount)
	return nil
}

func (r *runner) runSuffixes(ctx context.Context) error {
	db, closeDB, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	store := database.NewSuffixStore(db, r.cfg.Database.BatchSize)
	if _, err := suffix.NewPipeline(r.cfg.Suffix, r.newFetcher(), store).Run(ctx); err != nil {
		return err
	}

	total, err := store.CountSuffixes(ctx)
	if err != nil {
		return fmt.Errorf("count suffixes: %w", err)
	}
	log.Info("Suffix table ready", "driver", r.cfg.Database.Driver, "rows", total)
	return nil
}

func (r *runner) runLookup(ctx context.Context, hosts []string) error {
	scores, err := export.ReadScoresCSV(r.cfg.Abuse.OutputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("No abuse scores available, run the abuse command first", "path", r.cfg.Abuse.OutputPath)
	case err != nil:
		return err
	}

	db, closeDB, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	resolver := lookup.NewResolver(database.NewSuffixStore(db, r.cfg.Database.BatchSize), scores)
	for _, host := range hosts {
		res, err := resolver.Resolve(ctx, host)
		if errors.Is(err, lookup.ErrNoSuffix) || errors.Is(err, lookup.ErrEmptyHost) {
			log.Warn("Host not resolved", "host", host, "error", err)
			continue
		}
		if err != nil {
			return err
		}
		writeResult(r.out, res)
	}
	return nil
}

func writeResult(w io.Writer, res lookup.Result) {
	score := "-"
	if res.Scored {
		score = export.FormatScore(res.AbuseScore)
	}
	domain := res.Registrable()
	if domain == "" {
		domain = "-"
	}
	fmt.Fprintf(w, "%s\tsuffix=%s\tdomain=%s\ttld=%s\tabuse_score=%s\n", res.Host, res.Suffix, domain, res.TLD, score)
}

func (r *runner) openStore() (*gorm.DB, func(), error) {
	var opts []database.Option
	if r.verboseSQL {
		opts = append(opts, database.WithLogger(database.VerboseLogger()))
	}

	db, err := database.SetupDB(r.cfg.Database, opts...)
	if err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if err := database.Close(db); err != nil {
			log.Warn("error closing database", "error", err)
		}
	}
	return db, closeDB, nil
}
