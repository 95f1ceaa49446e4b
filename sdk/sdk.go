package sdk

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/web3infra/nameseed/schema"
)

// SDK drives the full commit-reveal dance against a nameseed node: make the
// commitment, publish it, wait out the minimum age, then reveal.
type SDK struct {
	Cli *Client

	sleep func(time.Duration) // swapped out in tests
}

func NewSDK(nameseedUrl string) *SDK {
	return &SDK{
		Cli:   New(nameseedUrl),
		sleep: time.Sleep,
	}
}

// NewSecret draws the 32-byte reveal secret.
func NewSecret() (string, error) {
	by := make([]byte, 32)
	if _, err := rand.Read(by); err != nil {
		return "", err
	}
	return hexutil.Encode(by), nil
}

// RegisterName reserves and registers a name in one sitting. The attached
// value should come from a fresh RentPrice quote; any excess is refunded to
// from's account.
func (s *SDK) RegisterName(params schema.CommitmentParams, from, value string) (schema.RespRegister, error) {
	if params.Secret == "" {
		secret, err := NewSecret()
		if err != nil {
			return schema.RespRegister{}, err
		}
		params.Secret = secret
	}

	info, err := s.Cli.Info()
	if err != nil {
		return schema.RespRegister{}, err
	}

	hash, err := s.Cli.MakeCommitment(params)
	if err != nil {
		return schema.RespRegister{}, err
	}
	if err = s.Cli.Commit(hash); err != nil {
		return schema.RespRegister{}, err
	}

	// the commitment is consumable only after minCommitmentAge
	s.sleep(time.Duration(info.MinCommitmentAge+1) * time.Second)

	return s.Cli.Register(schema.ReqRegister{
		CommitmentParams: params,
		From:             from,
		Value:            value,
	})
}

// RenewName extends a registration. Overpayment on renewal is kept by the
// treasury, so quote first and attach exactly that.
func (s *SDK) RenewName(name string, duration int64, from string) (schema.RespRenew, error) {
	quote, err := s.Cli.RentPrice(name, duration)
	if err != nil {
		return schema.RespRenew{}, err
	}
	total, err := addWei(quote.Base, quote.Premium)
	if err != nil {
		return schema.RespRenew{}, err
	}
	return s.Cli.Renew(schema.ReqRenew{
		Name:     name,
		Duration: duration,
		From:     from,
		Value:    total,
	})
}

func addWei(a, b string) (string, error) {
	x, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", errors.New("bad wei amount")
	}
	y, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return "", errors.New("bad wei amount")
	}
	return new(big.Int).Add(x, y).String(), nil
}
