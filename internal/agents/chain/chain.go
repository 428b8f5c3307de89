// Package chain 实现以太坊兼容链的执行者适配器,用于在工作流中
// 查询链上状态。
package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"APE-Core/internal/agent"
	"APE-Core/internal/agents"
	xerrors "APE-Core/internal/errors"
)

// Config 描述链节点的连接参数。
type Config struct {
	RPCURL string
}

// Agent 通过 JSON-RPC 查询链上数据。
type Agent struct {
	client *ethclient.Client
	rpcURL string
}

// New 建立与链节点的连接。
func New(ctx context.Context, cfg Config) (*Agent, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "链节点 RPC URL 不能为空")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接链节点失败")
	}
	return &Agent{client: client, rpcURL: rpcURL}, nil
}

// Capabilities 返回支持的操作列表。
func (a *Agent) Capabilities() []string {
	return []string{
		"get_chain_id",
		"get_block_number",
		"get_balance",
		"get_transaction_count",
	}
}

// Process 按 action 分发请求。
func (a *Agent) Process(ctx context.Context, req agent.Request) agent.Response {
	switch req.Action {
	case "get_chain_id":
		return a.getChainID(ctx)
	case "get_block_number":
		return a.getBlockNumber(ctx)
	case "get_balance":
		return a.getBalance(ctx, req.Params)
	case "get_transaction_count":
		return a.getTransactionCount(ctx, req.Params)
	default:
		return agent.Fail("unsupported action: %s", req.Action)
	}
}

func (a *Agent) getChainID(ctx context.Context) agent.Response {
	chainID, err := a.client.ChainID(ctx)
	if err != nil {
		return agent.Fail("get chain id: %v", err)
	}
	return agent.Succeed(map[string]any{"chain_id": chainID.String()})
}

func (a *Agent) getBlockNumber(ctx context.Context) agent.Response {
	blockNumber, err := a.client.BlockNumber(ctx)
	if err != nil {
		return agent.Fail("get block number: %v", err)
	}
	return agent.Succeed(map[string]any{"block_number": blockNumber})
}

func (a *Agent) getBalance(ctx context.Context, params map[string]any) agent.Response {
	address := agents.StringParam(params, "address")
	if !common.IsHexAddress(address) {
		return agent.Fail("invalid address: %s", address)
	}
	balance, err := a.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return agent.Fail("get balance: %v", err)
	}
	return agent.Succeed(map[string]any{
		"address": address,
		"wei":     balance.String(),
		"ether":   weiToEther(balance),
	})
}

func (a *Agent) getTransactionCount(ctx context.Context, params map[string]any) agent.Response {
	address := agents.StringParam(params, "address")
	if !common.IsHexAddress(address) {
		return agent.Fail("invalid address: %s", address)
	}
	nonce, err := a.client.NonceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return agent.Fail("get transaction count: %v", err)
	}
	return agent.Succeed(map[string]any{"address": address, "count": nonce})
}

// weiToEther 换算为以太单位的十进制字符串。
func weiToEther(wei *big.Int) string {
	ether := new(big.Rat).SetFrac(wei, big.NewInt(1e18))
	return ether.FloatString(6)
}

// Close 释放底层 RPC 连接。
func (a *Agent) Close() error {
	if a != nil && a.client != nil {
		a.client.Close()
	}
	return nil
}

var _ agent.Agent = (*Agent)(nil)
