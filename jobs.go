package nameseed

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/web3infra/nameseed/schema"
	"gopkg.in/h2non/gentleman.v2"
)

const maxBlocksPerSweep = 50

func (s *Nameseed) runJobs() {
	s.scheduler.Every(5).Minute().SingletonMode().Do(s.updateEthRate)
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.watchDeposits)
	s.scheduler.Every(1).Hour().SingletonMode().Do(s.updateDailyStatistic)
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.metricTreasury)

	s.scheduler.StartAsync()
}

// updateEthRate refreshes the USD/ETH conversion the oracle quotes with.
// A manually-set row in token_prices pins the rate and skips the feed.
func (s *Nameseed) updateEthRate() {
	if err := s.wdb.InsertPrices([]schema.TokenPrice{{Symbol: "ETH", Decimals: 18}}); err != nil {
		log.Error("s.wdb.InsertPrices(tps)", "err", err)
		return
	}
	tp, err := s.wdb.GetPrice("ETH")
	if err != nil {
		log.Error("s.wdb.GetPrice(\"ETH\")", "err", err)
		return
	}
	if tp.ManualSet {
		if tp.Price > 0 {
			s.cache.UpdateRate(decimal.NewFromFloat(tp.Price))
		}
		return
	}
	if s.priceFeedUrl == "" {
		return
	}

	cli := gentleman.New().URL(s.priceFeedUrl)
	resp, err := cli.Get().Send()
	if err != nil {
		log.Error("fetch eth rate", "err", err, "url", s.priceFeedUrl)
		return
	}
	if !resp.Ok {
		log.Error("fetch eth rate", "status", resp.StatusCode, "url", s.priceFeedUrl)
		return
	}
	price := gjson.GetBytes(resp.Bytes(), "ethereum.usd").Float()
	if price <= 0 {
		log.Error("fetch eth rate: bad payload", "url", s.priceFeedUrl)
		return
	}

	if err := s.wdb.UpdatePrice("ETH", price); err != nil {
		log.Error("s.wdb.UpdatePrice(\"ETH\",price)", "err", err, "price", price)
		return
	}
	s.cache.UpdateRate(decimal.NewFromFloat(price))
}

// watchDeposits scans new blocks for native transfers to the deposit
// address and credits the sender's internal account. Credit is idempotent
// by tx hash, so rescanning a block is harmless.
func (s *Nameseed) watchDeposits() {
	if s.ethCli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	latest, err := s.ethCli.BlockNumber(ctx)
	if err != nil {
		log.Error("s.ethCli.BlockNumber(ctx)", "err", err)
		return
	}
	cursor, err := s.wdb.GetDepositCursor()
	if err != nil {
		log.Error("s.wdb.GetDepositCursor()", "err", err)
		return
	}
	if cursor == 0 {
		// first run: start from the current head
		if err = s.wdb.SetDepositCursor(int64(latest)); err != nil {
			log.Error("s.wdb.SetDepositCursor(latest)", "err", err)
		}
		return
	}

	end := int64(latest)
	if end > cursor+maxBlocksPerSweep {
		end = cursor + maxBlocksPerSweep
	}
	for h := cursor + 1; h <= end; h++ {
		block, err := s.ethCli.BlockByNumber(ctx, big.NewInt(h))
		if err != nil {
			log.Error("s.ethCli.BlockByNumber(ctx,h)", "err", err, "height", h)
			return
		}
		for _, tx := range block.Transactions() {
			if tx.To() == nil || tx.Value().Sign() <= 0 {
				continue
			}
			if normAddr(tx.To().Hex()) != s.depositAddr {
				continue
			}
			from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
			if err != nil {
				log.Error("recover deposit sender", "err", err, "tx", tx.Hash())
				continue
			}
			if err = s.treasury.Credit(normAddr(from.Hex()), tx.Value(), tx.Hash().Hex()); err != nil {
				log.Error("credit deposit", "err", err, "tx", tx.Hash())
				return
			}
			log.Info("deposit credited", "from", from, "amount", tx.Value(), "tx", tx.Hash())
		}
		if err = s.wdb.SetDepositCursor(h); err != nil {
			log.Error("s.wdb.SetDepositCursor(h)", "err", err, "height", h)
			return
		}
	}
	s.cache.UpdateHeight(int64(latest))
}

func (s *Nameseed) updateDailyStatistic() {
	// recompute today and yesterday so late receipts land in the right bucket
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
		start, end := day, day.AddDate(0, 0, 1)
		count, err := s.wdb.CountRegistrationsBetween(start, end)
		if err != nil {
			log.Error("s.wdb.CountRegistrationsBetween", "err", err)
			return
		}
		revenue, err := s.sumReceipts(schema.ReceiptPayment, start, end)
		if err != nil {
			log.Error("sum payment receipts", "err", err)
			return
		}
		payout, err := s.sumReceipts(schema.ReceiptPayout, start, end)
		if err != nil {
			log.Error("sum payout receipts", "err", err)
			return
		}
		err = s.wdb.UpsertDailyStatistic(schema.DailyStatistic{
			Date:          day,
			Registrations: count,
			RevenueWei:    new(big.Int).Sub(revenue, payout).String(),
		})
		if err != nil {
			log.Error("s.wdb.UpsertDailyStatistic", "err", err)
			return
		}
	}
}

func (s *Nameseed) sumReceipts(kind string, start, end time.Time) (*big.Int, error) {
	rpts, err := s.wdb.GetReceiptsBetween(kind, start, end)
	if err != nil {
		return nil, err
	}
	sum := big.NewInt(0)
	for _, rpt := range rpts {
		amount, ok := new(big.Int).SetString(rpt.Amount, 10)
		if !ok {
			log.Error("bad receipt amount", "id", rpt.ID, "amount", rpt.Amount)
			continue
		}
		sum.Add(sum, amount)
	}
	return sum, nil
}

func (s *Nameseed) metricTreasury() {
	bal, err := s.treasury.Balance()
	if err != nil {
		log.Error("s.treasury.Balance()", "err", err)
		return
	}
	metricTreasuryBalance(bal)
}
