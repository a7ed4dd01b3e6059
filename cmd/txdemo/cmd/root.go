package cmd

import (
	"database/sql"
	"io"
	"log"

	"github.com/oagudo/txscope"
	"github.com/oagudo/txscope/internal/config"
	"github.com/oagudo/txscope/internal/database"
	"github.com/oagudo/txscope/internal/logger"
	"github.com/oagudo/txscope/internal/users"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type (
	Cmd struct {
		rootCmd   *cobra.Command
		rootFlags rootFlags
		out       io.Writer

		db      *sql.DB
		log     *logrus.Logger
		dialect txscope.SQLDialect
		exec    *txscope.Executor
		txm     *txscope.TxManager
		service *users.Service
	}

	rootFlags struct {
		cfgFile   string
		debugMode bool
	}
)

// New creates the txdemo command set.
func New() *Cmd {
	return &Cmd{}
}

// Execute runs the command line and exits on error.
func (c *Cmd) Execute() {
	err := c.command().Execute()
	c.close()
	if err != nil {
		log.Fatalln(err)
	}
}

func (c *Cmd) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "txdemo",
		Short: "Exercises transactional data access against a user store",
		Long: `Exercises transactional data access against a user store.

Password changes update the user and append a history entry in a single
transaction, so either both writes are visible or neither is.`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.rootFlags.cfgFile, "config", "", "config file (default is ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&c.rootFlags.debugMode, "debug", false, "log every statement")
	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.getMigrateCmd())
	rootCmd.AddCommand(c.getAddUserCmd())
	rootCmd.AddCommand(c.getShowUserCmd())
	rootCmd.AddCommand(c.getChangePasswordCmd())

	return rootCmd
}

// setup loads the configuration and wires the data access components.
func (c *Cmd) setup(cmd *cobra.Command, args []string) error {
	c.out = cmd.OutOrStdout()

	cfg, err := config.Load(c.rootFlags.cfgFile)
	if err != nil {
		return err
	}

	c.log = logger.New(cfg)
	if c.rootFlags.debugMode {
		c.log.SetLevel(logrus.DebugLevel)
	}

	c.db, err = database.Open(c.log, cfg)
	if err != nil {
		return err
	}

	c.dialect = txscope.SQLDialect(cfg.Database.Dialect)
	src := txscope.NewSource(c.db)
	c.exec = txscope.NewExecutor(src, txscope.WithDialect(c.dialect), txscope.WithLogger(c.log))
	c.txm = txscope.NewTxManager(src, txscope.WithTxOptions(cfg.TxOptions()), txscope.WithTxLogger(c.log))
	c.service = users.NewService(users.NewUserDao(c.exec), users.NewUserHistoryDao(c.exec), c.txm, c.log)

	return nil
}

func (c *Cmd) close() {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		c.log.WithError(err).Warn("closing database")
	}
	c.db = nil
}
