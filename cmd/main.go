package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	nameseed "github.com/web3infra/nameseed"
	"github.com/web3infra/nameseed/schema"
)

func main() {
	app := &cli.App{
		Name: "nameseed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "commitment ledger dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/nameseed?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},

			&cli.StringFlag{Name: "eth_rpc", Value: "", Usage: "ethereum json-rpc endpoint for the deposit watcher", EnvVars: []string{"ETH_RPC"}},
			&cli.StringFlag{Name: "deposit_addr", Value: "", Usage: "address deposits are sent to", EnvVars: []string{"DEPOSIT_ADDR"}},
			&cli.StringFlag{Name: "price_feed", Value: "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd", Usage: "usd/eth price feed url", EnvVars: []string{"PRICE_FEED"}},
			&cli.StringFlag{Name: "kafka_uri", Value: "", Usage: "kafka broker for controller events, empty disables", EnvVars: []string{"KAFKA_URI"}},

			&cli.Int64Flag{Name: "min_commitment_age", Value: schema.DefaultMinCommitmentAge, Usage: "seconds before a commitment is consumable", EnvVars: []string{"MIN_COMMITMENT_AGE"}},
			&cli.Int64Flag{Name: "max_commitment_age", Value: schema.DefaultMaxCommitmentAge, Usage: "seconds until a commitment expires", EnvVars: []string{"MAX_COMMITMENT_AGE"}},
			&cli.StringFlag{Name: "suffix", Value: schema.DefaultSuffix, Usage: "name suffix", EnvVars: []string{"SUFFIX"}},
			&cli.StringFlag{Name: "owner", Value: "", Usage: "admin owner address", EnvVars: []string{"OWNER"}},
			&cli.StringFlag{Name: "beneficiary", Value: "", Usage: "revenue recipient address", EnvVars: []string{"BENEFICIARY"}},
			&cli.StringFlag{Name: "eth_usd", Value: "2000", Usage: "initial usd/eth rate until the feed answers", EnvVars: []string{"ETH_USD"}},

			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	s := nameseed.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.String("eth_rpc"), c.String("deposit_addr"), c.String("price_feed"), c.String("kafka_uri"),
		c.Int64("min_commitment_age"), c.Int64("max_commitment_age"),
		c.String("suffix"), c.String("owner"), c.String("beneficiary"), c.String("eth_usd"),
	)
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
