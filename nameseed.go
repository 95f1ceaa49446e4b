package nameseed

import (
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/shopspring/decimal"
	"github.com/web3infra/nameseed/schema"
)

type Nameseed struct {
	engine *gin.Engine

	store      *Store // commitment ledger
	wdb        *Wdb
	cache      *Cache
	localCache *LocalCache

	registrar  *LedgerRegistrar
	resolver   *DbResolver
	reverse    *DbReverseRegistrar
	treasury   *LedgerTreasury
	controller *Controller

	events    EventSink
	scheduler *gocron.Scheduler

	ethCli       *ethclient.Client // nil when no rpc endpoint configured
	depositAddr  string
	priceFeedUrl string
}

func New(
	boltDir, mysqlDsn, sqliteDir string, useSqlite bool,
	ethRpc, depositAddr, priceFeedUrl, kafkaUri string,
	minCommitmentAge, maxCommitmentAge int64,
	suffix, owner, beneficiary string, initialRate string,
) *Nameseed {
	store, err := NewBoltStore(boltDir)
	if err != nil {
		panic(err)
	}

	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewMysqlDb(mysqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	rate, err := decimal.NewFromString(initialRate)
	if err != nil {
		panic(err)
	}
	cache := NewCache(rate)
	localCache, err := NewLocalCache(5 * time.Minute)
	if err != nil {
		panic(err)
	}

	var events EventSink = NoopSink{}
	if kafkaUri != "" {
		sink, err := NewKafkaSink(kafkaUri)
		if err != nil {
			panic(err)
		}
		events = sink
	}

	var ethCli *ethclient.Client
	if ethRpc != "" {
		ethCli, err = ethclient.Dial(ethRpc)
		if err != nil {
			panic(err)
		}
	}

	registrar := NewLedgerRegistrar(wdb)
	resolver := NewDbResolver(wdb, registrar)
	reverse := NewDbReverseRegistrar(wdb)
	treasury := NewLedgerTreasury(wdb)

	controller, err := NewController(ControllerConfig{
		Registrar:        registrar,
		Prices:           DefaultUsdOracle(cache),
		Resolver:         resolver,
		Reverse:          reverse,
		Treasury:         treasury,
		Commitments:      store,
		Events:           events,
		MinCommitmentAge: minCommitmentAge,
		MaxCommitmentAge: maxCommitmentAge,
		Suffix:           suffix,
		Owner:            owner,
		Beneficiary:      beneficiary,
	})
	if err != nil {
		panic(err)
	}

	return &Nameseed{
		engine:       gin.Default(),
		store:        store,
		wdb:          wdb,
		cache:        cache,
		localCache:   localCache,
		registrar:    registrar,
		resolver:     resolver,
		reverse:      reverse,
		treasury:     treasury,
		controller:   controller,
		events:       events,
		scheduler:    gocron.NewScheduler(time.UTC),
		ethCli:       ethCli,
		depositAddr:  normAddr(depositAddr),
		priceFeedUrl: priceFeedUrl,
	}
}

func (s *Nameseed) Run(port string) {
	go s.runAPI(port)
	s.runJobs()
}

func (s *Nameseed) Close() {
	s.scheduler.Stop()
	if sink, ok := s.events.(*KafkaSink); ok {
		sink.Close()
	}
	if err := s.store.Close(); err != nil {
		log.Error("close commitment store", "err", err)
	}
	s.wdb.Close()
	log.Info("nameseed closed")
}

// Controller exposes the core for embedding and tests.
func (s *Nameseed) Controller() *Controller { return s.controller }

func (s *Nameseed) info() schema.RespInfo {
	return schema.RespInfo{
		Suffix:           s.controller.Suffix(),
		BaseNode:         s.controller.BaseNode().Hex(),
		MinCommitmentAge: s.controller.MinCommitmentAge(),
		MaxCommitmentAge: s.controller.MaxCommitmentAge(),
		Owner:            s.controller.Owner(),
		Beneficiary:      s.controller.Beneficiary(),
		DepositAddress:   s.depositAddr,
	}
}
