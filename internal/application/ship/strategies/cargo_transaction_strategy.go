package strategies

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/domain/ledger"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
)

// CargoTransactionStrategy abstracts the direction of a cargo trade.
// Purchases and sales share the same batching, ledger and market-refresh
// machinery; only the precondition check and the API call differ.
type CargoTransactionStrategy interface {
	// Execute performs one transaction batch against the game API.
	Execute(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*TransactionResult, error)

	// ValidatePreconditions checks whether the ship can trade the
	// requested units before any API call is made.
	ValidatePreconditions(ship *navigation.Ship, goodSymbol string, units int) error

	// TransactionType names the operation for logs and error messages.
	TransactionType() string

	// LedgerEntry maps a batch total onto ledger semantics: the entry
	// type and the signed amount (negative for money leaving the agent).
	LedgerEntry(totalAmount int) (ledger.TransactionType, int)
}

// TransactionResult carries the outcome of a single transaction batch.
type TransactionResult struct {
	UnitsProcessed int
	TotalAmount    int // credits moved: cost for purchases, revenue for sales
	PricePerUnit   int
	AgentCredits   int // agent balance after this batch, straight from the API
	Cargo          *navigation.CargoData
}

// PurchaseStrategy buys cargo. Requires free cargo space for the full
// requested amount.
type PurchaseStrategy struct {
	apiClient ports.APIClient
}

func NewPurchaseStrategy(apiClient ports.APIClient) *PurchaseStrategy {
	return &PurchaseStrategy{apiClient: apiClient}
}

func (s *PurchaseStrategy) Execute(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*TransactionResult, error) {
	result, err := s.apiClient.PurchaseCargo(ctx, shipSymbol, goodSymbol, units, token)
	if err != nil {
		return nil, err
	}

	return &TransactionResult{
		UnitsProcessed: result.UnitsAdded,
		TotalAmount:    result.TotalCost,
		PricePerUnit:   result.PricePerUnit,
		AgentCredits:   result.AgentCredits,
		Cargo:          result.Cargo,
	}, nil
}

func (s *PurchaseStrategy) ValidatePreconditions(ship *navigation.Ship, goodSymbol string, units int) error {
	availableSpace := ship.AvailableCargoSpace()
	if availableSpace < units {
		return fmt.Errorf("insufficient cargo space: need %d, have %d", units, availableSpace)
	}
	return nil
}

func (s *PurchaseStrategy) TransactionType() string {
	return "purchase"
}

func (s *PurchaseStrategy) LedgerEntry(totalAmount int) (ledger.TransactionType, int) {
	return ledger.TransactionTypeCargoPurchase, -totalAmount
}

// SellStrategy sells cargo. Requires the ship to actually hold the
// requested units.
type SellStrategy struct {
	apiClient ports.APIClient
}

func NewSellStrategy(apiClient ports.APIClient) *SellStrategy {
	return &SellStrategy{apiClient: apiClient}
}

func (s *SellStrategy) Execute(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*TransactionResult, error) {
	result, err := s.apiClient.SellCargo(ctx, shipSymbol, goodSymbol, units, token)
	if err != nil {
		return nil, err
	}

	return &TransactionResult{
		UnitsProcessed: result.UnitsSold,
		TotalAmount:    result.TotalRevenue,
		PricePerUnit:   result.PricePerUnit,
		AgentCredits:   result.AgentCredits,
		Cargo:          result.Cargo,
	}, nil
}

func (s *SellStrategy) ValidatePreconditions(ship *navigation.Ship, goodSymbol string, units int) error {
	currentUnits := ship.Cargo().GetItemUnits(goodSymbol)
	if currentUnits < units {
		return fmt.Errorf("insufficient cargo: have %d units of %s, need %d", currentUnits, goodSymbol, units)
	}
	return nil
}

func (s *SellStrategy) TransactionType() string {
	return "sell"
}

func (s *SellStrategy) LedgerEntry(totalAmount int) (ledger.TransactionType, int) {
	return ledger.TransactionTypeCargoSale, totalAmount
}
