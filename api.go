package nameseed

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/web3infra/nameseed/schema"
)

func (s *Nameseed) runAPI(port string) {
	s.registerRoutes()
	if err := s.engine.Run(port); err != nil {
		panic(err)
	}
}

func (s *Nameseed) registerRoutes() {
	r := s.engine
	r.Use(CORSMiddleware())
	r.Use(LimiterMiddleware(600, "M", nil))

	v1 := r.Group("/")
	{
		v1.GET("/info", s.getInfo)
		v1.GET("/price/:name/:duration", s.getRentPrice)
		v1.GET("/name/:name", s.getName)
		v1.GET("/name/:name/records", s.getNameRecords)
		v1.GET("/reverse/:address", s.getReverse)
		v1.GET("/account/:address", s.getAccount)
		v1.GET("/capability/:id", s.getCapability)
		v1.GET("/stats/daily", s.getDailyStats)

		// commit-reveal flow
		v1.GET("/commitment/:hash", s.getCommitment)
		v1.POST("/commitment", s.makeCommitment)
		v1.POST("/commit", s.commit)
		v1.POST("/register", s.register)
		v1.POST("/renew", s.renew)
		v1.POST("/renew/privileged", s.renewPrivileged)

		v1.POST("/admin/withdraw", s.withdraw)
		v1.POST("/admin/oracle", s.setOracle)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func errorResponse(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch err {
	case ErrUnauthorised:
		status = http.StatusForbidden
	case ErrNotFound, ErrNotExist:
		status = http.StatusNotFound
	}
	c.JSON(status, schema.RespErr{Err: err.Error()})
}

func (s *Nameseed) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.info())
}

func (s *Nameseed) getRentPrice(c *gin.Context) {
	name := c.Param("name")
	duration, err := strconv.ParseInt(c.Param("duration"), 10, 64)
	if err != nil || duration <= 0 {
		errorResponse(c, ErrDurationTooShort)
		return
	}
	quote, err := s.controller.RentPrice(name, duration)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespQuote{
		Name:     NormalizeLabel(name),
		Duration: duration,
		Base:     quote.Base.String(),
		Premium:  quote.Premium.String(),
	})
}

func (s *Nameseed) getName(c *gin.Context) {
	name := c.Param("name")
	resp := schema.RespName{
		Name:  NormalizeLabel(name),
		Valid: s.controller.Valid(name),
	}
	if resp.Valid {
		avail, err := s.controller.Available(name)
		if err != nil {
			errorResponse(c, err)
			return
		}
		resp.Available = avail
		expiry, err := s.controller.NameExpires(name)
		if err != nil {
			errorResponse(c, err)
			return
		}
		resp.Expiry = expiry
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Nameseed) getNameRecords(c *gin.Context) {
	label := NormalizeLabel(c.Param("name"))
	cacheKey := "records_" + label
	if by, err := s.localCache.Cache.Get(cacheKey); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", by)
		return
	}

	node := Namehash(s.controller.BaseNode(), label)
	records, err := s.resolver.Records(node)
	if err != nil {
		errorResponse(c, err)
		return
	}
	by, err := json.Marshal(records)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err = s.localCache.Cache.Set(cacheKey, by); err != nil {
		log.Error("set records cache", "err", err, "label", label)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", by)
}

func (s *Nameseed) getReverse(c *gin.Context) {
	name, err := s.reverse.NameOf(normAddr(c.Param("address")))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (s *Nameseed) getAccount(c *gin.Context) {
	bal, err := s.treasury.AccountBalance(normAddr(c.Param("address")))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": bal.String()})
}

func (s *Nameseed) getCapability(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"supported": s.controller.SupportsCapability(c.Param("id"))})
}

func (s *Nameseed) getDailyStats(c *gin.Context) {
	stats, err := s.wdb.GetDailyStatistics(30)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Nameseed) getCommitment(c *gin.Context) {
	hash := common.HexToHash(c.Param("hash"))
	ts, err := s.controller.CommitmentAt(hash)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespCommitmentAt{
		Commitment: hash.Hex(),
		Timestamp:  ts,
	})
}

func (s *Nameseed) makeCommitment(c *gin.Context) {
	params := schema.CommitmentParams{}
	if err := c.ShouldBindJSON(&params); err != nil {
		errorResponse(c, err)
		return
	}
	hash, err := MakeCommitment(params)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespCommitment{Commitment: hash.Hex()})
}

func (s *Nameseed) commit(c *gin.Context) {
	req := schema.ReqCommit{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.controller.Commit(common.HexToHash(req.Commitment)); err != nil {
		errorResponse(c, err)
		return
	}
	commitsTotal.Inc()
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Nameseed) register(c *gin.Context) {
	req := schema.ReqRegister{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	resp, err := s.controller.Register(req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	// a re-registration may have rewritten the records; drop the cached copy
	label := NormalizeLabel(req.Name)
	if derr := s.localCache.Cache.Delete("records_" + label); derr != nil && derr != bigcache.ErrEntryNotFound {
		log.Error("invalidate records cache", "err", derr, "label", label)
	}
	registrationsTotal.WithLabelValues(s.controller.Suffix()).Inc()
	c.JSON(http.StatusOK, resp)
}

func (s *Nameseed) renew(c *gin.Context) {
	req := schema.ReqRenew{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	resp, err := s.controller.Renew(req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	renewalsTotal.WithLabelValues(s.controller.Suffix()).Inc()
	c.JSON(http.StatusOK, resp)
}

func (s *Nameseed) renewPrivileged(c *gin.Context) {
	req := schema.ReqRenew{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	resp, err := s.controller.RenewWithPrivileges(req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	renewalsTotal.WithLabelValues(s.controller.Suffix()).Inc()
	c.JSON(http.StatusOK, resp)
}

func (s *Nameseed) withdraw(c *gin.Context) {
	req := schema.ReqWithdraw{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	amount, err := s.controller.Withdraw(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespWithdraw{
		Beneficiary: s.controller.Beneficiary(),
		Amount:      amount.String(),
	})
}

func (s *Nameseed) setOracle(c *gin.Context) {
	req := schema.ReqSetOracle{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	oracle, err := NewUsdOracle(req.UsdPrices, req.PremiumStart, req.PremiumPeriod, s.cache)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err = s.controller.SetPriceOracle(req.Caller, oracle); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"oracle": oracle.Describe()})
}
