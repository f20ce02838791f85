// Package ledger implements the wallet/ledger state machine. Every operation
// is atomic with respect to its caller: preconditions are validated against a
// working copy, nothing is persisted until all checks pass, and a failing
// operation leaves wallet and ledger untouched. Balances never go negative.
package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/services/metrics"
)

const (
	// MinInvestMinor is the invest floor: 100 major units.
	MinInvestMinor int64 = 100 * 100

	metaPlatform  = "platform"
	metaSymbol    = "symbol"
	metaAsset     = "asset"
	metaAmount    = "amount"
	metaFee       = "fee"
	metaRecipient = "recipient"
	metaOp        = "op"
)

var withdrawalFeeRate = decimal.NewFromFloat(0.01)

// Journal is the append-only ledger contract.
type Journal interface {
	Append(userID string, entries ...domain.LedgerEntry) error
	List(userID string) ([]domain.LedgerEntry, error)
}

// WalletStore is the wallet/asset read-write contract.
type WalletStore interface {
	Wallet(userID string) (domain.Wallet, error)
	SaveWallet(userID string, w domain.Wallet) error
	Assets(userID string) (domain.AssetBalances, error)
	SaveAssets(userID string, a domain.AssetBalances) error
}

// StateMachine routes every wallet mutation through its operation table.
// The mutex serializes writers: none of the operations are safe to
// interleave (two concurrent withdrawals could both pass the balance check
// against stale data).
type StateMachine struct {
	mu      sync.Mutex
	journal Journal
	wallets WalletStore
	clock   domain.Clock
	logger  *zap.Logger
	prices  map[string]decimal.Decimal
}

// New creates the state machine. prices maps asset symbols to their USDT
// price for exchange operations.
func New(journal Journal, wallets WalletStore, clock domain.Clock, prices map[string]decimal.Decimal, logger *zap.Logger) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &StateMachine{
		journal: journal,
		wallets: wallets,
		clock:   clock,
		logger:  logger,
		prices:  prices,
	}
}

// Invest moves available capital into the running (pending) balance.
func (s *StateMachine) Invest(ctx context.Context, userID string, amountMinor int64) error {
	if amountMinor <= 0 {
		return errors.Wrap(domain.ErrInvalidInput, "invest amount must be positive")
	}
	if amountMinor < MinInvestMinor {
		return errors.Wrapf(domain.ErrBelowMinimum, "invest amount %d below minimum %d", amountMinor, MinInvestMinor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return errors.Wrap(err, "read wallet")
	}
	if wallet.AvailableMinor < amountMinor {
		return errors.Wrapf(domain.ErrInsufficientBalance, "available %d, need %d", wallet.AvailableMinor, amountMinor)
	}

	wallet.AvailableMinor -= amountMinor
	wallet.PendingMinor += amountMinor

	entry := domain.NewLedgerEntry(domain.EntryAdjustment, -amountMinor, wallet.Currency, s.clock.Now()).
		WithMeta(metaOp, "invest")

	if err := s.commitWallet(userID, wallet, entry); err != nil {
		return err
	}

	s.logger.Info("invest",
		zap.String("user", userID),
		zap.Int64("amount_minor", amountMinor),
		zap.Int64("available_minor", wallet.AvailableMinor),
		zap.Int64("pending_minor", wallet.PendingMinor))
	return nil
}

// RecordEarn posts an emitted order as an EARN entry. The wallet is not
// touched: accrual is a read-side projection until a payout moves it.
func (s *StateMachine) RecordEarn(ctx context.Context, userID string, order domain.Order) error {
	if order.ProfitMinor <= 0 {
		return errors.Wrap(domain.ErrInvalidInput, "order profit must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return errors.Wrap(err, "read wallet")
	}

	entry := domain.NewLedgerEntry(domain.EntryEarn, order.ProfitMinor, wallet.Currency, order.Timestamp).
		WithMeta(metaPlatform, order.Platform).
		WithMeta(metaSymbol, order.Symbol)

	if err := s.journal.Append(userID, entry); err != nil {
		return errors.Wrap(err, "append earn entry")
	}

	s.logger.Debug("earn recorded",
		zap.String("user", userID),
		zap.String("platform", order.Platform),
		zap.Int64("profit_minor", order.ProfitMinor))
	return nil
}

// Payout moves the accrued earnings into the available balance.
func (s *StateMachine) Payout(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.journal.List(userID)
	if err != nil {
		return 0, errors.Wrap(err, "read ledger")
	}
	accrued := metrics.AccruedMinor(entries)
	if accrued <= 0 {
		return 0, errors.Wrap(domain.ErrInvalidInput, "nothing accrued to pay out")
	}

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return 0, errors.Wrap(err, "read wallet")
	}
	wallet.AvailableMinor += accrued

	entry := domain.NewLedgerEntry(domain.EntryPayout, accrued, wallet.Currency, s.clock.Now())
	if err := s.commitWallet(userID, wallet, entry); err != nil {
		return 0, err
	}

	s.logger.Info("payout",
		zap.String("user", userID),
		zap.Int64("amount_minor", accrued),
		zap.Int64("available_minor", wallet.AvailableMinor))
	return accrued, nil
}

// WithdrawFiat deducts the amount plus a 1% fee from the available balance
// and parks the amount in pending until settlement.
func (s *StateMachine) WithdrawFiat(ctx context.Context, userID string, amountMinor int64) error {
	if amountMinor <= 0 {
		return errors.Wrap(domain.ErrInvalidInput, "withdrawal amount must be positive")
	}

	feeMinor := decimal.NewFromInt(amountMinor).Mul(withdrawalFeeRate).Round(0).IntPart()

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return errors.Wrap(err, "read wallet")
	}
	if wallet.AvailableMinor < amountMinor+feeMinor {
		return errors.Wrapf(domain.ErrInsufficientBalance, "available %d, need %d including fee",
			wallet.AvailableMinor, amountMinor+feeMinor)
	}

	wallet.AvailableMinor -= amountMinor + feeMinor
	wallet.PendingMinor += amountMinor

	request := domain.NewLedgerEntry(domain.EntryWithdrawalRequest, -amountMinor, wallet.Currency, s.clock.Now())
	fee := domain.NewLedgerEntry(domain.EntryWithdrawalFee, -feeMinor, wallet.Currency, s.clock.Now()).
		WithRef(request.ID)

	if err := s.commitWallet(userID, wallet, request, fee); err != nil {
		return err
	}

	s.logger.Info("fiat withdrawal requested",
		zap.String("user", userID),
		zap.Int64("amount_minor", amountMinor),
		zap.Int64("fee_minor", feeMinor))
	return nil
}

// WithdrawCrypto deducts amount plus a 1% fee from the held crypto balance.
// The ledger entry carries a zero fiat amount with the crypto detail in meta.
func (s *StateMachine) WithdrawCrypto(ctx context.Context, userID, asset string, amount decimal.Decimal) error {
	if asset == "" || amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(domain.ErrInvalidInput, "crypto withdrawal needs an asset and a positive amount")
	}

	fee := amount.Mul(withdrawalFeeRate)
	total := amount.Add(fee)

	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.wallets.Assets(userID)
	if err != nil {
		return errors.Wrap(err, "read assets")
	}
	held := assets.Holding(asset)
	if held.LessThan(total) {
		return errors.Wrapf(domain.ErrInsufficientBalance, "%s balance %s, need %s including fee",
			asset, held.String(), total.String())
	}

	next := assets.Clone()
	next.Holdings[asset] = held.Sub(total)

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return errors.Wrap(err, "read wallet")
	}

	entry := domain.NewLedgerEntry(domain.EntryWithdrawalRequest, 0, wallet.Currency, s.clock.Now()).
		WithMeta(metaAsset, asset).
		WithMeta(metaAmount, amount.String()).
		WithMeta(metaFee, fee.String())

	if err := s.commitAssets(userID, next, entry); err != nil {
		return err
	}

	s.logger.Info("crypto withdrawal requested",
		zap.String("user", userID),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()))
	return nil
}

// ExchangeToUSDT converts held crypto into USDT, crediting both the USDT
// balance and the available fiat balance.
func (s *StateMachine) ExchangeToUSDT(ctx context.Context, userID, asset string, amount decimal.Decimal) (int64, error) {
	if asset == "" || amount.LessThanOrEqual(decimal.Zero) {
		return 0, errors.Wrap(domain.ErrInvalidInput, "exchange needs an asset and a positive amount")
	}
	price, ok := s.prices[asset]
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return 0, errors.Wrapf(domain.ErrInvalidInput, "no price for asset %s", asset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.wallets.Assets(userID)
	if err != nil {
		return 0, errors.Wrap(err, "read assets")
	}
	held := assets.Holding(asset)
	if held.LessThan(amount) {
		return 0, errors.Wrapf(domain.ErrInsufficientBalance, "%s balance %s, need %s",
			asset, held.String(), amount.String())
	}

	creditMinor := amount.Mul(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	next := assets.Clone()
	next.Holdings[asset] = held.Sub(amount)
	next.USDTMinor += creditMinor

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return 0, errors.Wrap(err, "read wallet")
	}
	wallet.AvailableMinor += creditMinor

	entry := domain.NewLedgerEntry(domain.EntryAdjustment, creditMinor, wallet.Currency, s.clock.Now()).
		WithMeta(metaOp, "exchange_to_usdt").
		WithMeta(metaAsset, asset).
		WithMeta(metaAmount, amount.String())

	if err := s.commitBoth(userID, wallet, next, entry); err != nil {
		return 0, err
	}

	s.logger.Info("exchange to USDT",
		zap.String("user", userID),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.Int64("credit_minor", creditMinor))
	return creditMinor, nil
}

// ExchangeFromUSDT converts USDT minor units into crypto at the configured
// price, debiting USDT and available fiat in lockstep.
func (s *StateMachine) ExchangeFromUSDT(ctx context.Context, userID, asset string, amountMinor int64) (decimal.Decimal, error) {
	if asset == "" || amountMinor <= 0 {
		return decimal.Zero, errors.Wrap(domain.ErrInvalidInput, "exchange needs an asset and a positive amount")
	}
	price, ok := s.prices[asset]
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Wrapf(domain.ErrInvalidInput, "no price for asset %s", asset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.wallets.Assets(userID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "read assets")
	}
	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "read wallet")
	}
	if assets.USDTMinor < amountMinor {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientBalance, "USDT balance %d, need %d",
			assets.USDTMinor, amountMinor)
	}
	if wallet.AvailableMinor < amountMinor {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientBalance, "available %d, need %d",
			wallet.AvailableMinor, amountMinor)
	}

	bought := decimal.NewFromInt(amountMinor).
		Div(decimal.NewFromInt(100)).
		Div(price)

	next := assets.Clone()
	next.USDTMinor -= amountMinor
	next.Holdings[asset] = next.Holding(asset).Add(bought)
	wallet.AvailableMinor -= amountMinor

	entry := domain.NewLedgerEntry(domain.EntryAdjustment, -amountMinor, wallet.Currency, s.clock.Now()).
		WithMeta(metaOp, "exchange_from_usdt").
		WithMeta(metaAsset, asset).
		WithMeta(metaAmount, bought.String())

	if err := s.commitBoth(userID, wallet, next, entry); err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("exchange from USDT",
		zap.String("user", userID),
		zap.String("asset", asset),
		zap.Int64("amount_minor", amountMinor),
		zap.String("bought", bought.String()))
	return bought, nil
}

// Transfer debits the available balance for an internal transfer. The
// recipient side is settled outside this state machine.
func (s *StateMachine) Transfer(ctx context.Context, userID, recipient string, amountMinor int64) error {
	if amountMinor <= 0 {
		return errors.Wrap(domain.ErrInvalidInput, "transfer amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return errors.Wrap(err, "read wallet")
	}
	if wallet.AvailableMinor < amountMinor {
		return errors.Wrapf(domain.ErrInsufficientBalance, "available %d, need %d", wallet.AvailableMinor, amountMinor)
	}

	wallet.AvailableMinor -= amountMinor

	entry := domain.NewLedgerEntry(domain.EntryAdjustment, -amountMinor, wallet.Currency, s.clock.Now()).
		WithMeta(metaOp, "transfer").
		WithMeta(metaRecipient, recipient)

	if err := s.commitWallet(userID, wallet, entry); err != nil {
		return err
	}

	s.logger.Info("transfer",
		zap.String("user", userID),
		zap.String("recipient", recipient),
		zap.Int64("amount_minor", amountMinor))
	return nil
}

// Deposit credits the available balance from an external funding source.
func (s *StateMachine) Deposit(ctx context.Context, userID string, amountMinor int64) error {
	if amountMinor <= 0 {
		return errors.Wrap(domain.ErrInvalidInput, "deposit amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.wallets.Wallet(userID)
	if err != nil {
		return errors.Wrap(err, "read wallet")
	}
	wallet.AvailableMinor += amountMinor

	entry := domain.NewLedgerEntry(domain.EntryAdjustment, amountMinor, wallet.Currency, s.clock.Now()).
		WithMeta(metaOp, "deposit")

	if err := s.commitWallet(userID, wallet, entry); err != nil {
		return err
	}

	s.logger.Info("deposit",
		zap.String("user", userID),
		zap.Int64("amount_minor", amountMinor))
	return nil
}

// Ledger returns the user's entries, newest first.
func (s *StateMachine) Ledger(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	return s.journal.List(userID)
}

// Wallet returns the user's wallet.
func (s *StateMachine) Wallet(ctx context.Context, userID string) (domain.Wallet, error) {
	return s.wallets.Wallet(userID)
}

// Assets returns the user's crypto balances.
func (s *StateMachine) Assets(ctx context.Context, userID string) (domain.AssetBalances, error) {
	return s.wallets.Assets(userID)
}

func (s *StateMachine) commitWallet(userID string, wallet domain.Wallet, entries ...domain.LedgerEntry) error {
	wallet.UpdatedAt = s.clock.Now()
	if err := s.journal.Append(userID, entries...); err != nil {
		return errors.Wrap(err, "append ledger entries")
	}
	if err := s.wallets.SaveWallet(userID, wallet); err != nil {
		return errors.Wrap(err, "save wallet")
	}
	return nil
}

func (s *StateMachine) commitAssets(userID string, assets domain.AssetBalances, entries ...domain.LedgerEntry) error {
	if err := s.journal.Append(userID, entries...); err != nil {
		return errors.Wrap(err, "append ledger entries")
	}
	if err := s.wallets.SaveAssets(userID, assets); err != nil {
		return errors.Wrap(err, "save assets")
	}
	return nil
}

func (s *StateMachine) commitBoth(userID string, wallet domain.Wallet, assets domain.AssetBalances, entries ...domain.LedgerEntry) error {
	wallet.UpdatedAt = s.clock.Now()
	if err := s.journal.Append(userID, entries...); err != nil {
		return errors.Wrap(err, "append ledger entries")
	}
	if err := s.wallets.SaveWallet(userID, wallet); err != nil {
		return errors.Wrap(err, "save wallet")
	}
	if err := s.wallets.SaveAssets(userID, assets); err != nil {
		return errors.Wrap(err, "save assets")
	}
	return nil
}
