package sdk

import (
	"fmt"

	"github.com/web3infra/nameseed/schema"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
)

// Client is the thin HTTP binding for a nameseed node.
type Client struct {
	SCli *gentleman.Client
}

func New(nameseedUrl string) *Client {
	return &Client{
		SCli: gentleman.New().URL(nameseedUrl),
	}
}

func (c *Client) Info() (schema.RespInfo, error) {
	info := schema.RespInfo{}
	err := c.getJSON("/info", &info)
	return info, err
}

func (c *Client) RentPrice(name string, duration int64) (schema.RespQuote, error) {
	quote := schema.RespQuote{}
	err := c.getJSON(fmt.Sprintf("/price/%s/%d", name, duration), &quote)
	return quote, err
}

func (c *Client) Name(name string) (schema.RespName, error) {
	res := schema.RespName{}
	err := c.getJSON(fmt.Sprintf("/name/%s", name), &res)
	return res, err
}

func (c *Client) CommitmentAt(hash string) (schema.RespCommitmentAt, error) {
	res := schema.RespCommitmentAt{}
	err := c.getJSON(fmt.Sprintf("/commitment/%s", hash), &res)
	return res, err
}

func (c *Client) MakeCommitment(params schema.CommitmentParams) (string, error) {
	res := schema.RespCommitment{}
	if err := c.postJSON("/commitment", params, &res); err != nil {
		return "", err
	}
	return res.Commitment, nil
}

func (c *Client) Commit(hash string) error {
	return c.postJSON("/commit", schema.ReqCommit{Commitment: hash}, &struct{}{})
}

func (c *Client) Register(req schema.ReqRegister) (schema.RespRegister, error) {
	res := schema.RespRegister{}
	err := c.postJSON("/register", req, &res)
	return res, err
}

func (c *Client) Renew(req schema.ReqRenew) (schema.RespRenew, error) {
	res := schema.RespRenew{}
	err := c.postJSON("/renew", req, &res)
	return res, err
}

func (c *Client) RenewWithPrivileges(req schema.ReqRenew) (schema.RespRenew, error) {
	res := schema.RespRenew{}
	err := c.postJSON("/renew/privileged", req, &res)
	return res, err
}

func (c *Client) Balance(address string) (string, error) {
	res := struct {
		Balance string `json:"balance"`
	}{}
	err := c.getJSON(fmt.Sprintf("/account/%s", address), &res)
	return res.Balance, err
}

func (c *Client) getJSON(path string, out interface{}) error {
	req := c.SCli.Get()
	req.AddPath(path)
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return fmt.Errorf("resp failed: %s", resp.String())
	}
	return resp.JSON(out)
}

func (c *Client) postJSON(path string, in, out interface{}) error {
	req := c.SCli.Post()
	req.AddPath(path)
	req.Use(body.JSON(in))
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return fmt.Errorf("resp failed: %s", resp.String())
	}
	return resp.JSON(out)
}
