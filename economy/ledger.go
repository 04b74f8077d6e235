package economy

import (
	"errors"
	"fmt"
	"math"

	"github.com/milk9111/towerstack/prefabs"
)

var (
	ErrInsufficientFunds = errors.New("economy: insufficient funds")
	ErrUnknownCost       = errors.New("economy: unknown cost")
)

// Reward is paid out for finished waves and defeated enemies.
type Reward struct {
	Energy float64
	Gold   float64
}

// Ledger tracks energy and gold. Both balances are never negative; a spend
// either deducts the full amount or nothing.
type Ledger struct {
	energy     float64
	gold       float64
	energyRate float64
	goldRate   float64
	costs      map[string]float64
	upgrade    prefabs.UpgradeSpec
}

func NewLedger(spec prefabs.EconomySpec) *Ledger {
	costs := make(map[string]float64, len(spec.Costs))
	for k, v := range spec.Costs {
		costs[k] = v
	}
	return &Ledger{
		energy:     math.Max(0, spec.Start.Energy),
		gold:       math.Max(0, spec.Start.Gold),
		energyRate: spec.Rates.Energy,
		goldRate:   spec.Rates.Gold,
		costs:      costs,
		upgrade:    spec.Upgrade,
	}
}

// Update accrues rate*dt of each currency.
func (l *Ledger) Update(dt float64) {
	if l == nil || dt <= 0 {
		return
	}
	l.energy += l.energyRate * dt
	l.gold += l.goldRate * dt
}

func (l *Ledger) Energy() float64 {
	if l == nil {
		return 0
	}
	return l.energy
}

func (l *Ledger) Gold() float64 {
	if l == nil {
		return 0
	}
	return l.gold
}

func (l *Ledger) Rates() (energy, gold float64) {
	if l == nil {
		return 0, 0
	}
	return l.energyRate, l.goldRate
}

func (l *Ledger) CanAfford(cost float64) bool {
	if l == nil || !validAmount(cost) {
		return false
	}
	return l.energy >= cost
}

// Spend deducts energy. It reports false and leaves the balance untouched
// when the balance is short.
func (l *Ledger) Spend(amount float64) bool {
	if !l.CanAfford(amount) {
		return false
	}
	l.energy -= amount
	return true
}

func (l *Ledger) SpendGold(amount float64) bool {
	if l == nil || !validAmount(amount) || l.gold < amount {
		return false
	}
	l.gold -= amount
	return true
}

func (l *Ledger) AddReward(r Reward) {
	if l == nil {
		return
	}
	if validAmount(r.Energy) {
		l.energy += r.Energy
	}
	if validAmount(r.Gold) {
		l.gold += r.Gold
	}
}

func (l *Ledger) AddEnergy(amount float64) {
	l.AddReward(Reward{Energy: amount})
}

// CostOf returns the energy price of a block type.
func (l *Ledger) CostOf(blockType string) (float64, bool) {
	if l == nil {
		return 0, false
	}
	cost, ok := l.costs[blockType]
	return cost, ok
}

func (l *Ledger) CanAffordBlock(blockType string) bool {
	cost, ok := l.CostOf(blockType)
	return ok && l.CanAfford(cost)
}

// Purchase charges the price of a block type.
func (l *Ledger) Purchase(blockType string) (float64, error) {
	cost, ok := l.CostOf(blockType)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCost, blockType)
	}
	if !l.Spend(cost) {
		return 0, fmt.Errorf("%w: %q costs %v, have %v", ErrInsufficientFunds, blockType, cost, l.Energy())
	}
	return cost, nil
}

// UpgradeEnergyRate buys one energy rate upgrade with gold. It reports false
// and changes nothing when gold is short or no upgrade is configured.
func (l *Ledger) UpgradeEnergyRate() bool {
	if l == nil || l.upgrade.EnergyRate <= 0 || !validAmount(l.upgrade.EnergyRate) {
		return false
	}
	if !l.SpendGold(l.upgrade.GoldCost) {
		return false
	}
	l.energyRate += l.upgrade.EnergyRate
	return true
}

// UpgradeCost returns the gold price of the next energy rate upgrade.
func (l *Ledger) UpgradeCost() float64 {
	if l == nil {
		return 0
	}
	return l.upgrade.GoldCost
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
