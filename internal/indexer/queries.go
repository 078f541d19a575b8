package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/observability"
)

const tokenFields = `id symbol name decimals`

const vaultQuery = `query Vault($id: ID!) {
  vault(id: $id) {
    id
    apr
    performanceFees
    depositLimit
    balanceTokens
    token { ` + tokenFields + ` }
    shareToken { ` + tokenFields + ` }
    strategies { id maxDebt currentDebt balanceTokens }
  }
}`

const positionQuery = `query VaultPosition($account: String!, $vault: String!) {
  accountVaultPositions(where: { account: $account, vault: $vault }) {
    id
    account
    balanceShares
    balancePosition
    vault { id }
    token { ` + tokenFields + ` }
    shareToken { ` + tokenFields + ` }
  }
}`

const positionDepositsQuery = `query PositionDeposits($account: String!, $vault: String!, $first: Int!, $skip: Int!) {
  deposits(first: $first, skip: $skip, where: { account: $account, vault: $vault }, orderBy: timestamp, orderDirection: desc) {
    id timestamp sharesMinted tokenAmount blockNumber vault { id }
  }
}`

const positionWithdrawalsQuery = `query PositionWithdrawals($account: String!, $vault: String!, $first: Int!, $skip: Int!) {
  withdrawals(first: $first, skip: $skip, where: { account: $account, vault: $vault }, orderBy: timestamp, orderDirection: desc) {
    id timestamp sharesBurnt tokenAmount blockNumber vault { id }
  }
}`

const accountDepositsQuery = `query AccountDeposits($account: String!, $first: Int!, $skip: Int!) {
  deposits(first: $first, skip: $skip, where: { account: $account }, orderBy: timestamp, orderDirection: desc) {
    id timestamp sharesMinted tokenAmount blockNumber vault { id }
  }
}`

const accountWithdrawalsQuery = `query AccountWithdrawals($account: String!, $first: Int!, $skip: Int!) {
  withdrawals(first: $first, skip: $skip, where: { account: $account }, orderBy: timestamp, orderDirection: desc) {
    id timestamp sharesBurnt tokenAmount blockNumber vault { id }
  }
}`

const strategyReportsQuery = `query StrategyReports($strategy: String!, $first: Int!, $skip: Int!) {
  strategyReports(first: $first, skip: $skip, where: { strategy: $strategy }, orderBy: timestamp, orderDirection: asc) {
    id timestamp gain loss
  }
}`

const strategyAprsQuery = `query StrategyHistoricalAprs($strategy: String!, $first: Int!, $skip: Int!) {
  strategyHistoricalAprs(first: $first, skip: $skip, where: { strategy: $strategy }, orderBy: timestamp, orderDirection: asc) {
    id apr timestamp
  }
}`

// Subgraph numbers arrive as strings (BigInt/BigDecimal) or JSON numbers;
// decimal.Decimal accepts both.

type rawToken struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Decimals decimal.Decimal `json:"decimals"`
}

type rawRef struct {
	ID string `json:"id"`
}

type rawVault struct {
	ID              string          `json:"id"`
	APR             decimal.Decimal `json:"apr"`
	PerformanceFees decimal.Decimal `json:"performanceFees"`
	DepositLimit    decimal.Decimal `json:"depositLimit"`
	BalanceTokens   decimal.Decimal `json:"balanceTokens"`
	Token           rawToken        `json:"token"`
	ShareToken      rawToken        `json:"shareToken"`
	Strategies      []struct {
		ID            string          `json:"id"`
		MaxDebt       decimal.Decimal `json:"maxDebt"`
		CurrentDebt   decimal.Decimal `json:"currentDebt"`
		BalanceTokens decimal.Decimal `json:"balanceTokens"`
	} `json:"strategies"`
}

type rawPosition struct {
	ID              string          `json:"id"`
	Account         string          `json:"account"`
	BalanceShares   decimal.Decimal `json:"balanceShares"`
	BalancePosition decimal.Decimal `json:"balancePosition"`
	Vault           rawRef          `json:"vault"`
	Token           rawToken        `json:"token"`
	ShareToken      rawToken        `json:"shareToken"`
}

type rawTransaction struct {
	ID           string          `json:"id"`
	Timestamp    decimal.Decimal `json:"timestamp"`
	SharesMinted decimal.Decimal `json:"sharesMinted"`
	SharesBurnt  decimal.Decimal `json:"sharesBurnt"`
	TokenAmount  decimal.Decimal `json:"tokenAmount"`
	BlockNumber  decimal.Decimal `json:"blockNumber"`
	Vault        *rawRef         `json:"vault"`
}

type rawReport struct {
	ID        string          `json:"id"`
	Timestamp decimal.Decimal `json:"timestamp"`
	Gain      decimal.Decimal `json:"gain"`
	Loss      decimal.Decimal `json:"loss"`
}

type rawApr struct {
	ID        string          `json:"id"`
	APR       decimal.Decimal `json:"apr"`
	Timestamp decimal.Decimal `json:"timestamp"`
}

func (t rawToken) toDomain() domain.Token {
	return domain.Token{
		ID:       t.ID,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: int32(t.Decimals.IntPart()),
	}
}

func (v rawVault) toDomain() *domain.Vault {
	out := &domain.Vault{
		ID:              v.ID,
		Type:            domain.VaultTypeDeFi,
		Token:           v.Token.toDomain(),
		ShareToken:      v.ShareToken.toDomain(),
		DepositLimit:    v.DepositLimit,
		BalanceTokens:   v.BalanceTokens,
		APR:             v.APR,
		PerformanceFees: v.PerformanceFees,
		Strategies:      make([]domain.Strategy, len(v.Strategies)),
	}
	for i, s := range v.Strategies {
		out.Strategies[i] = domain.Strategy{
			ID:            s.ID,
			MaxDebt:       s.MaxDebt,
			CurrentDebt:   s.CurrentDebt,
			BalanceTokens: s.BalanceTokens,
		}
	}
	return out
}

func (p rawPosition) toDomain() *domain.VaultPosition {
	return &domain.VaultPosition{
		ID:              p.ID,
		Account:         p.Account,
		VaultID:         p.Vault.ID,
		Token:           p.Token.toDomain(),
		ShareToken:      p.ShareToken.toDomain(),
		BalanceShares:   p.BalanceShares,
		BalancePosition: p.BalancePosition,
	}
}

func (t rawTransaction) toDomain(kind domain.TransactionKind) domain.TransactionItem {
	item := domain.TransactionItem{
		ID:           t.ID,
		Kind:         kind,
		Timestamp:    t.Timestamp.IntPart(),
		SharesMinted: t.SharesMinted,
		SharesBurnt:  t.SharesBurnt,
		TokenAmount:  t.TokenAmount,
		BlockNumber:  t.BlockNumber.IntPart(),
	}
	if t.Vault != nil {
		item.VaultID = t.Vault.ID
	}
	return item
}

// Vault returns the vault with id, or nil if the subgraph does not know it.
// The returned type is always DEFI; callers apply the registry type.
func (c *Client) Vault(ctx context.Context, id string) (*domain.Vault, error) {
	var out struct {
		Vault *rawVault `json:"vault"`
	}
	if err := c.Query(ctx, "vault", vaultQuery, map[string]interface{}{"id": id}, &out); err != nil {
		return nil, err
	}
	if out.Vault == nil {
		return nil, nil
	}
	return out.Vault.toDomain(), nil
}

// Position returns account's position in vault, or nil when none is indexed.
func (c *Client) Position(ctx context.Context, account, vault string) (*domain.VaultPosition, error) {
	var out struct {
		Positions []rawPosition `json:"accountVaultPositions"`
	}
	vars := map[string]interface{}{
		"account": strings.ToLower(account),
		"vault":   vault,
	}
	if err := c.Query(ctx, "position", positionQuery, vars, &out); err != nil {
		return nil, err
	}
	if len(out.Positions) == 0 {
		return nil, nil
	}
	return out.Positions[0].toDomain(), nil
}

// PositionDeposits returns every deposit of account into vault.
func (c *Client) PositionDeposits(ctx context.Context, account, vault string) ([]domain.TransactionItem, error) {
	return c.transactions(ctx, "positionDeposits", positionDepositsQuery, "deposits", domain.TransactionDeposit,
		map[string]interface{}{"account": strings.ToLower(account), "vault": vault})
}

// PositionWithdrawals returns every withdrawal of account from vault.
func (c *Client) PositionWithdrawals(ctx context.Context, account, vault string) ([]domain.TransactionItem, error) {
	return c.transactions(ctx, "positionWithdrawals", positionWithdrawalsQuery, "withdrawals", domain.TransactionWithdrawal,
		map[string]interface{}{"account": strings.ToLower(account), "vault": vault})
}

// PositionTransactions returns the deposits and withdrawals of account in vault.
func (c *Client) PositionTransactions(ctx context.Context, account, vault string) (domain.History, error) {
	deposits, err := c.PositionDeposits(ctx, account, vault)
	if err != nil {
		return domain.History{}, fmt.Errorf("deposits: %w", err)
	}
	withdrawals, err := c.PositionWithdrawals(ctx, account, vault)
	if err != nil {
		return domain.History{}, fmt.Errorf("withdrawals: %w", err)
	}
	return domain.History{Deposits: deposits, Withdrawals: withdrawals}, nil
}

// AccountDeposits returns every deposit of account across vaults.
func (c *Client) AccountDeposits(ctx context.Context, account string) ([]domain.TransactionItem, error) {
	return c.transactions(ctx, "accountDeposits", accountDepositsQuery, "deposits", domain.TransactionDeposit,
		map[string]interface{}{"account": strings.ToLower(account)})
}

// AccountWithdrawals returns every withdrawal of account across vaults.
func (c *Client) AccountWithdrawals(ctx context.Context, account string) ([]domain.TransactionItem, error) {
	return c.transactions(ctx, "accountWithdrawals", accountWithdrawalsQuery, "withdrawals", domain.TransactionWithdrawal,
		map[string]interface{}{"account": strings.ToLower(account)})
}

func (c *Client) transactions(ctx context.Context, name, query, field string, kind domain.TransactionKind, base map[string]interface{}) ([]domain.TransactionItem, error) {
	return Paginate(ctx, c.pageSize, func(ctx context.Context, first, skip int) ([]domain.TransactionItem, error) {
		var out map[string][]rawTransaction
		if err := c.Query(ctx, name, query, withPage(base, first, skip), &out); err != nil {
			return nil, err
		}
		observability.RecordIndexerPage(name)
		raw := out[field]
		items := make([]domain.TransactionItem, len(raw))
		for i, t := range raw {
			items[i] = t.toDomain(kind)
		}
		return items, nil
	})
}

// StrategyReports returns all gain/loss reports and historical APRs of strategy.
func (c *Client) StrategyReports(ctx context.Context, strategy string) ([]domain.StrategyReport, []domain.HistoricalApr, error) {
	base := map[string]interface{}{"strategy": strategy}

	reports, err := Paginate(ctx, c.pageSize, func(ctx context.Context, first, skip int) ([]domain.StrategyReport, error) {
		var out struct {
			Reports []rawReport `json:"strategyReports"`
		}
		if err := c.Query(ctx, "strategyReports", strategyReportsQuery, withPage(base, first, skip), &out); err != nil {
			return nil, err
		}
		observability.RecordIndexerPage("strategyReports")
		page := make([]domain.StrategyReport, len(out.Reports))
		for i, r := range out.Reports {
			page[i] = domain.StrategyReport{
				ID:        r.ID,
				Timestamp: r.Timestamp.IntPart(),
				Gain:      r.Gain,
				Loss:      r.Loss,
			}
		}
		return page, nil
	})
	if err != nil {
		return nil, nil, err
	}

	aprs, err := Paginate(ctx, c.pageSize, func(ctx context.Context, first, skip int) ([]domain.HistoricalApr, error) {
		var out struct {
			Aprs []rawApr `json:"strategyHistoricalAprs"`
		}
		if err := c.Query(ctx, "strategyHistoricalAprs", strategyAprsQuery, withPage(base, first, skip), &out); err != nil {
			return nil, err
		}
		observability.RecordIndexerPage("strategyHistoricalAprs")
		page := make([]domain.HistoricalApr, len(out.Aprs))
		for i, a := range out.Aprs {
			page[i] = domain.HistoricalApr{ID: a.ID, APR: a.APR, Timestamp: a.Timestamp.IntPart()}
		}
		return page, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return reports, aprs, nil
}

func withPage(base map[string]interface{}, first, skip int) map[string]interface{} {
	vars := make(map[string]interface{}, len(base)+2)
	for k, v := range base {
		vars[k] = v
	}
	vars["first"] = first
	vars["skip"] = skip
	return vars
}
