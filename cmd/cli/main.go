// Command signatorctl is the operator and signer CLI for Signator.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/and161185/signator/internal/repository"
	"github.com/and161185/signator/internal/repository/postgres"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app carries the dependencies commands share; tests swap them out.
type app struct {
	v         *viper.Viper
	http      *http.Client
	openUsers func(ctx context.Context, dsn string) (repository.UserRepository, func(), error)
	migrateUp func(ctx context.Context, dsn string) error
	migrateSt func(ctx context.Context, dsn string) error
}

func openUsersPG(ctx context.Context, dsn string) (repository.UserRepository, func(), error) {
	db, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserRepo(db), db.Close, nil
}

func (a *app) dsn() (string, error) {
	dsn := a.v.GetString("db.dsn")
	if dsn == "" {
		return "", errors.New("database DSN required (--dsn or SIGNATOR_DB_DSN)")
	}
	return dsn, nil
}

func (a *app) users(ctx context.Context) (repository.UserRepository, func(), error) {
	dsn, err := a.dsn()
	if err != nil {
		return nil, nil, err
	}
	return a.openUsers(ctx, dsn)
}

func (a *app) addr() string {
	return strings.TrimRight(a.v.GetString("addr"), "/")
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "signatorctl",
		Short:         "Operate a Signator server and sign documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			a.http.Timeout = a.v.GetDuration("timeout")
		},
	}
	pf := root.PersistentFlags()
	pf.String("dsn", "", "PostgreSQL DSN (env SIGNATOR_DB_DSN)")
	pf.String("addr", "http://localhost:8080", "server base URL (env SIGNATOR_ADDR)")
	pf.Duration("timeout", 30*time.Second, "request timeout")
	_ = a.v.BindPFlag("db.dsn", pf.Lookup("dsn"))
	_ = a.v.BindPFlag("addr", pf.Lookup("addr"))
	_ = a.v.BindPFlag("timeout", pf.Lookup("timeout"))

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Printf("signatorctl %s (%s)\n", version, buildDate)
			},
		},
		newMigrateCmd(a),
		newUserCmd(a),
		newPDFCmd(),
		newLoginCmd(a),
		newRequestsCmd(a),
		newSignCmd(a),
		newDownloadCmd(a),
	)
	return root
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix("SIGNATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &app{
		v:         v,
		http:      &http.Client{},
		openUsers: openUsersPG,
		migrateUp: migrateUp,
		migrateSt: migrateStatus,
	}
}

func main() {
	a := newApp()
	root := newRootCmd(a)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
