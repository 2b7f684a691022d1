package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/andreyvit/wtinspect"
	"github.com/andreyvit/wtinspect/pkg/logger"
	_ "github.com/andreyvit/wtinspect/wiredtiger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[0], os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func newFlagSet(program string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.StringP("dbpath", "d", "/data/db", "set dbpath to read from")
	fs.StringP("outpath", "o", "", "set dbpath to write to")
	fs.StringP("tables", "t", "", "list of tables to be copied")
	fs.BoolP("list", "l", false, "list the table mappings")
	fs.BoolP("help", "h", false, "print this help menu")
	fs.String("engine", wtinspect.DefaultDriver, "engine driver: "+strings.Join(wtinspect.Drivers(), ", "))
	fs.String("config", wtinspect.DefaultOpenConfig, "engine open configuration")
	fs.String("format", wtinspect.ReportText.String(), "report format: text, json or msgpack")
	fs.String("ns", "", "resolve a single collection namespace")
	fs.String("dump", "", "dump the raw records of a table URI")
	fs.Int("retries", 0, "re-attempts for operations failing with a retryable status")
	fs.Bool("strict", false, "fail on the first malformed catalog record")
	fs.String("log-level", "warn", "log level: debug, info, warn or error")
	return fs
}

// loadConfig layers flags over WTINSPECT_* environment variables over an
// optional .wtinspect.yaml in the working directory.
func loadConfig(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("WTINSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(".wtinspect")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

func run(ctx context.Context, program string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(program)
	fs.SetOutput(stderr)
	usage := func(w io.Writer) {
		fmt.Fprintf(w, "Usage: %s [-l] [options]\n", program)
		fs.SetOutput(w)
		fs.PrintDefaults()
		fs.SetOutput(stderr)
	}
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if help, _ := fs.GetBool("help"); help {
		usage(stdout)
		return exitOK
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "%s: unexpected arguments: %s\n", program, strings.Join(fs.Args(), " "))
		usage(stderr)
		return exitUsage
	}

	v, err := loadConfig(fs)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)
		return exitUsage
	}

	log, err := logger.NewWriter(stderr, v.GetString("log-level"))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)
		return exitUsage
	}
	logger.SetDefault(log)
	defer func() {
		logger.SyncDefault()
		logger.SetDefault(nil)
	}()

	format, err := wtinspect.ParseReportFormat(v.GetString("format"))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)
		return exitUsage
	}

	home := v.GetString("dbpath")
	opt := wtinspect.Options{
		Driver:     v.GetString("engine"),
		Config:     v.GetString("config"),
		MaxRetries: v.GetInt("retries"),
	}
	ropt := wtinspect.ReadOptions{Strict: v.GetBool("strict")}

	switch {
	case v.GetBool("list"):
		err = list(ctx, stdout, home, opt, ropt, format)
	case v.GetString("ns") != "":
		err = resolve(ctx, stdout, home, opt, ropt, format, v.GetString("ns"))
	case v.GetString("dump") != "":
		err = dump(ctx, stdout, home, opt, v.GetString("dump"))
	default:
		err = copyTables(stdout, log, home, opt, v.GetString("outpath"), v.GetString("tables"))
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)
		return exitFailure
	}
	return exitOK
}

func list(ctx context.Context, w io.Writer, home string, opt wtinspect.Options, ropt wtinspect.ReadOptions, format wtinspect.ReportFormat) error {
	cat, err := wtinspect.ListCatalog(ctx, home, opt, ropt)
	if err != nil {
		return err
	}
	return wtinspect.WriteReport(w, cat, format)
}

func resolve(ctx context.Context, w io.Writer, home string, opt wtinspect.Options, ropt wtinspect.ReadOptions, format wtinspect.ReportFormat, ns string) (err error) {
	env, err := wtinspect.Open(home, opt)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	r, err := wtinspect.NewResolver(env, wtinspect.ResolverOptions{Read: ropt})
	if err != nil {
		return err
	}
	defer r.Close()

	entry, err := r.Collection(ctx, ns)
	if err != nil {
		return err
	}
	return wtinspect.WriteReport(w, &wtinspect.Catalog{Entries: []wtinspect.CatalogEntry{entry}}, format)
}

func dump(ctx context.Context, w io.Writer, home string, opt wtinspect.Options, uri string) (err error) {
	env, err := wtinspect.Open(home, opt)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return env.View(func(sess *wtinspect.Session) error {
		return sess.Dump(ctx, w, uri, wtinspect.DumpAll)
	})
}

// copyTables opens the environment and a session, then only validates its
// flags; copying tables is not implemented.
func copyTables(w io.Writer, log logger.Logger, home string, opt wtinspect.Options, outpath, tables string) (err error) {
	env, err := wtinspect.Open(home, opt)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return env.View(func(*wtinspect.Session) error {
		switch {
		case outpath == "":
			fmt.Fprintln(w, "No Outpath set!")
		case tables == "":
			fmt.Fprintln(w, "No tables listed")
		default:
			log.Warn("table copy is not implemented", "outpath", outpath, "tables", tables)
		}
		return nil
	})
}
