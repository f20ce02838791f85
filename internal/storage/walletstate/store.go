// Package walletstate persists wallet and asset balances per user as JSON
// files, written atomically via temp file and rename.
package walletstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

const DefaultDir = "./state/wallets"

// Store reads and writes per-user wallet state files.
type Store struct {
	dir             string
	defaultCurrency string
}

// NewStore creates the state directory if needed.
func NewStore(dir, defaultCurrency string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create wallet state dir")
	}
	return &Store{dir: dir, defaultCurrency: defaultCurrency}, nil
}

type storedState struct {
	Wallet storedWallet `json:"wallet"`
	Assets storedAssets `json:"assets"`
}

type storedWallet struct {
	AvailableMinor int64     `json:"available_minor"`
	PendingMinor   int64     `json:"pending_minor"`
	Currency       string    `json:"currency"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type storedAssets struct {
	USDTMinor int64             `json:"usdt_minor"`
	Holdings  map[string]string `json:"holdings"`
}

// Wallet loads the user's wallet; a fresh zero wallet when none exists.
func (s *Store) Wallet(userID string) (domain.Wallet, error) {
	state, err := s.load(userID)
	if err != nil {
		return domain.Wallet{}, err
	}
	if state == nil {
		return domain.Wallet{Currency: s.defaultCurrency}, nil
	}
	return domain.Wallet{
		AvailableMinor: state.Wallet.AvailableMinor,
		PendingMinor:   state.Wallet.PendingMinor,
		Currency:       state.Wallet.Currency,
		UpdatedAt:      state.Wallet.UpdatedAt,
	}, nil
}

// SaveWallet persists the wallet, keeping stored assets untouched.
func (s *Store) SaveWallet(userID string, w domain.Wallet) error {
	state, err := s.load(userID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &storedState{Assets: storedAssets{Holdings: map[string]string{}}}
	}
	state.Wallet = storedWallet{
		AvailableMinor: w.AvailableMinor,
		PendingMinor:   w.PendingMinor,
		Currency:       w.Currency,
		UpdatedAt:      w.UpdatedAt,
	}
	return s.save(userID, state)
}

// Assets loads the user's crypto balances; empty balances when none exist.
func (s *Store) Assets(userID string) (domain.AssetBalances, error) {
	state, err := s.load(userID)
	if err != nil {
		return domain.AssetBalances{}, err
	}
	if state == nil {
		return domain.NewAssetBalances(), nil
	}

	out := domain.AssetBalances{
		USDTMinor: state.Assets.USDTMinor,
		Holdings:  make(map[string]decimal.Decimal, len(state.Assets.Holdings)),
	}
	for asset, raw := range state.Assets.Holdings {
		if raw == "" {
			out.Holdings[asset] = decimal.Zero
			continue
		}
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.AssetBalances{}, errors.Wrapf(err, "decode %s holding", asset)
		}
		out.Holdings[asset] = parsed
	}
	return out, nil
}

// SaveAssets persists crypto balances, keeping the stored wallet untouched.
func (s *Store) SaveAssets(userID string, a domain.AssetBalances) error {
	state, err := s.load(userID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &storedState{Wallet: storedWallet{Currency: s.defaultCurrency}}
	}
	holdings := make(map[string]string, len(a.Holdings))
	for asset, amount := range a.Holdings {
		holdings[asset] = amount.String()
	}
	state.Assets = storedAssets{USDTMinor: a.USDTMinor, Holdings: holdings}
	return s.save(userID, state)
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", sanitizeUserID(userID)))
}

func (s *Store) load(userID string) (*storedState, error) {
	payload, err := os.ReadFile(s.path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read wallet state")
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var state storedState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode wallet state")
	}
	return &state, nil
}

func (s *Store) save(userID string, state *storedState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode wallet state")
	}

	path := s.path(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write wallet state temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "persist wallet state")
	}
	return nil
}

func sanitizeUserID(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "default"
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "default"
	}
	return out
}
