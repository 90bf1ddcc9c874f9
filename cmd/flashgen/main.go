// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/common/cfgstruct"
	"storj.io/common/fpath"
	"storj.io/common/process"

	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/sitedb"
)

// Site defines the flashgen run configuration.
type Site struct {
	Database            string `help:"database connection string, sqlite://<path> or firestore://<project>[/<database>]" default:"sqlite://$CONFDIR/flashgen.db" releaseDefault:"firestore://flashgen"`
	DatabaseCredentials string `help:"path to the Google service account key used for firestore, empty uses application default credentials" default:""`

	site.Config
}

var (
	rootCmd = &cobra.Command{
		Use:   "flashgen",
		Short: "FlashGen flashcard site",
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the site",
		RunE:  cmdRun,
	}
	setupCmd = &cobra.Command{
		Use:         "setup",
		Short:       "Create config files",
		RunE:        cmdSetup,
		Annotations: map[string]string{"type": "setup"},
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  cmdMigrate,
	}

	runCfg     Site
	setupCfg   Site
	migrateCfg struct {
		Database            string `help:"database connection string, sqlite://<path> or firestore://<project>[/<database>]" default:"sqlite://$CONFDIR/flashgen.db" releaseDefault:"firestore://flashgen"`
		DatabaseCredentials string `help:"path to the Google service account key used for firestore, empty uses application default credentials" default:""`
	}

	confDir string
)

func init() {
	defaultConfDir := fpath.ApplicationDir("flashgen")
	cfgstruct.SetupFlag(zap.L(), rootCmd, &confDir, "config-dir", defaultConfDir, "main directory for flashgen configuration")
	defaults := cfgstruct.DefaultsFlag(rootCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(migrateCmd)
	process.Bind(runCmd, &runCfg, defaults, cfgstruct.ConfDir(confDir))
	process.Bind(setupCmd, &setupCfg, defaults, cfgstruct.ConfDir(confDir), cfgstruct.SetupMode())
	process.Bind(migrateCmd, &migrateCfg, defaults, cfgstruct.ConfDir(confDir))
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	log := zap.L()

	db, err := sitedb.Open(ctx, log.Named("db"), runCfg.Database, sitedb.Options{
		CredentialsFile: runCfg.DatabaseCredentials,
	})
	if err != nil {
		return errs.New("Error opening database: %+v", err)
	}
	defer func() {
		err = errs.Combine(err, db.Close())
	}()

	err = db.MigrateToLatest(ctx)
	if err != nil {
		return errs.New("Error migrating database: %+v", err)
	}

	peer, err := site.NewPeer(log, db, &runCfg.Config)
	if err != nil {
		return err
	}

	log.Info("site started", zap.String("address", peer.Addr()))

	runError := peer.Run(ctx)
	closeError := peer.Close()
	return errs.Combine(runError, closeError)
}

func cmdSetup(cmd *cobra.Command, args []string) (err error) {
	setupDir, err := filepath.Abs(confDir)
	if err != nil {
		return err
	}

	valid, _ := fpath.IsValidSetupDir(setupDir)
	if !valid {
		return fmt.Errorf("flashgen configuration already exists (%v)", setupDir)
	}

	err = os.MkdirAll(setupDir, 0700)
	if err != nil {
		return err
	}

	return process.SaveConfig(cmd, filepath.Join(setupDir, "config.yaml"))
}

func cmdMigrate(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	log := zap.L()

	db, err := sitedb.Open(ctx, log.Named("db"), migrateCfg.Database, sitedb.Options{
		CredentialsFile: migrateCfg.DatabaseCredentials,
	})
	if err != nil {
		return errs.New("Error opening database: %+v", err)
	}
	defer func() {
		err = errs.Combine(err, db.Close())
	}()

	err = db.MigrateToLatest(ctx)
	if err != nil {
		return errs.New("Error migrating database: %+v", err)
	}

	log.Info("database is up to date")
	return nil
}

func main() {
	logger, _, _ := process.NewLogger("flashgen")
	zap.ReplaceGlobals(logger)

	process.Exec(rootCmd)
}
