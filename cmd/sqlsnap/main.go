// Command sqlsnap inspects query cache keys and manages a badger backed
// sqlsnap cache.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/prashanthpai/sqlsnap"
	"github.com/prashanthpai/sqlsnap/cachekey"
	"github.com/prashanthpai/sqlsnap/snapshot"
)

type app struct {
	configPath string
	cfg        config
	log        *logrus.Logger

	// flag overrides
	salt      string
	logLevel  string
	badgerDir string
	compress  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "sqlsnap",
		Short:        "Inspect sqlsnap cache keys and cached snapshots",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&a.salt, "salt", "", "key salt (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")
	flags.StringVar(&a.badgerDir, "badger-dir", "", "badger cache directory (overrides config)")
	flags.BoolVar(&a.compress, "compress", false, "xz compress stored snapshots (overrides config)")

	root.AddCommand(
		a.keyCmd(),
		a.depsCmd(),
		a.inspectCmd(),
		a.keysCmd(),
		a.invalidateCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("salt") {
		cfg.Salt = a.salt
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("badger-dir") {
		cfg.Badger.Dir = a.badgerDir
	}
	if flags.Changed("compress") {
		cfg.Badger.Compress = a.compress
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) openStore() (*sqlsnap.Badger, error) {
	a.log.WithField("dir", a.cfg.Badger.Dir).Debug("opening badger")
	return sqlsnap.OpenBadger(a.cfg.Badger.Dir, a.cfg.Badger.Compress, a.log.WithField("component", "badger"))
}

func (a *app) keyCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "key QUERY [ARG...]",
		Short: "Print the cache key of an annotated query",
		Long: `Print the cache key an interceptor with the configured salt would use.
Arguments are [name=][type:]value with type one of text, int, float, bool,
bytes (hex), dec, uuid or time (RFC 3339); "null" is a null argument.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseArgs(args[1:])
			if err != nil {
				return err
			}
			d, ok := sqlsnap.Describe(args[0], params, a.cfg.Salt)
			if !ok {
				return errors.New("query has no @cache-ttl and @cache-max-rows attributes")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, d.KeyHash)
			fmt.Fprintf(out, "dependencies: %s\n", strings.Join(d.Dependencies, ","))
			if raw {
				fmt.Fprintf(out, "material:\n%s\n", d.RawKeyMaterial)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "also print the raw key material")
	return cmd
}

func (a *app) depsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps QUERY",
		Short: "Print the tables a query depends on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dep := range cachekey.ExtractDependencies(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), dep)
			}
			return nil
		},
	}
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect KEY",
		Short: "Print a cached snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			snap, ok, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %s not cached", args[0])
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
}

func printSnapshot(w io.Writer, snap *snapshot.Snapshot) error {
	cur := snapshot.NewCursor(snap)
	defer cur.Close()

	cols := make([]string, cur.FieldCount())
	for i := range cols {
		name, err := cur.Name(i)
		if err != nil {
			return err
		}
		typ, err := cur.DataTypeName(i)
		if err != nil {
			return err
		}
		cols[i] = fmt.Sprintf("%s %s", name, typ)
	}
	fmt.Fprintf(w, "# %s: %d rows\n", snap.TableID(), snap.RowCount())
	fmt.Fprintln(w, strings.Join(cols, "\t"))

	values := make([]snapshot.Value, cur.FieldCount())
	for {
		ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := cur.Values(values); err != nil {
			return err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = v.String()
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
}

func (a *app) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys TAG",
		Short: "List the cached keys depending on a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := store.Keys(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

func (a *app) invalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate TAG...",
		Short: "Drop every cached snapshot depending on the given tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Invalidate(cmd.Context(), args...); err != nil {
				return err
			}
			a.log.WithField("tags", args).Info("invalidated")
			return nil
		},
	}
}
