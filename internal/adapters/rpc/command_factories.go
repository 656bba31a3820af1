package rpc

import (
	"fmt"

	contractcommands "github.com/orbitalmachines/astrogator/internal/application/contract/commands"
	scoutingcommands "github.com/orbitalmachines/astrogator/internal/application/scouting/commands"
	shipcommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	shiptypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	shipyardcommands "github.com/orbitalmachines/astrogator/internal/application/shipyard/commands"
	tradingcommands "github.com/orbitalmachines/astrogator/internal/application/trading/commands"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// CommandFactory rebuilds a container's iteration command from its persisted
// metadata blob. Factories see metadata after a JSON round trip, so all
// numbers arrive as float64.
type CommandFactory func(metadata map[string]interface{}, playerID shared.PlayerID) (interface{}, error)

// FactoryRegistry maps persisted command types to factories. Kinds without a
// factory are not recovered at boot; their rows stay INTERRUPTED.
type FactoryRegistry struct {
	factories map[string]CommandFactory
}

func NewFactoryRegistry() *FactoryRegistry {
	fr := &FactoryRegistry{factories: make(map[string]CommandFactory)}
	fr.registerDefaults()
	return fr
}

// Lookup returns the factory for a command type.
func (fr *FactoryRegistry) Lookup(commandType string) (CommandFactory, bool) {
	f, ok := fr.factories[commandType]
	return f, ok
}

// Register adds or replaces a factory.
func (fr *FactoryRegistry) Register(commandType string, factory CommandFactory) {
	fr.factories[commandType] = factory
}

func (fr *FactoryRegistry) registerDefaults() {
	fr.Register("navigate_route", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		destination, err := metaString(md, "destination")
		if err != nil {
			return nil, err
		}
		return &shipcommands.NavigateRouteCommand{
			ShipSymbol:  shipSymbol,
			Destination: destination,
			PlayerID:    playerID,
		}, nil
	})

	fr.Register("dock_ship", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		return &shiptypes.DockShipCommand{ShipSymbol: shipSymbol, PlayerID: playerID}, nil
	})

	fr.Register("orbit_ship", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		return &shiptypes.OrbitShipCommand{ShipSymbol: shipSymbol, PlayerID: playerID}, nil
	})

	fr.Register("refuel_ship", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		cmd := &shiptypes.RefuelShipCommand{ShipSymbol: shipSymbol, PlayerID: playerID}
		if units, ok := metaIntOptional(md, "units"); ok {
			cmd.Units = &units
		}
		return cmd, nil
	})

	fr.Register("scout_tour", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		markets, err := metaStrings(md, "markets")
		if err != nil {
			return nil, err
		}
		iterations, _ := metaIntOptional(md, "iterations")
		return &scoutingcommands.ScoutTourCommand{
			PlayerID:   playerID,
			ShipSymbol: shipSymbol,
			Markets:    markets,
			Iterations: iterations,
		}, nil
	})

	fr.Register("assign_scouting_fleet", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		systemSymbol, err := metaString(md, "system_symbol")
		if err != nil {
			return nil, err
		}
		return &scoutingcommands.AssignScoutingFleetCommand{
			PlayerID:     playerID,
			SystemSymbol: systemSymbol,
		}, nil
	})

	fr.Register("purchase_ship", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		shipType, err := metaString(md, "ship_type")
		if err != nil {
			return nil, err
		}
		cmd := &shipyardcommands.PurchaseShipCommand{
			ShipSymbol: shipSymbol,
			ShipType:   shipType,
			PlayerID:   playerID,
		}
		if wp, _ := metaStringOptional(md, "shipyard_waypoint"); wp != "" {
			cmd.ShipyardWaypoint = wp
		}
		return cmd, nil
	})

	fr.Register("batch_purchase_ships", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		shipType, err := metaString(md, "ship_type")
		if err != nil {
			return nil, err
		}
		quantity, err := metaInt(md, "quantity")
		if err != nil {
			return nil, err
		}
		maxBudget, err := metaInt(md, "max_budget")
		if err != nil {
			return nil, err
		}
		cmd := &shipyardcommands.BatchPurchaseShipsCommand{
			ShipSymbol: shipSymbol,
			ShipType:   shipType,
			Quantity:   quantity,
			MaxBudget:  maxBudget,
			PlayerID:   playerID,
		}
		if wp, _ := metaStringOptional(md, "shipyard_waypoint"); wp != "" {
			cmd.ShipyardWaypoint = wp
		}
		return cmd, nil
	})

	fr.Register("run_contract_workflow", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		return &contractcommands.RunContractWorkflowCommand{
			ShipSymbol: shipSymbol,
			PlayerID:   playerID,
		}, nil
	})

	fr.Register("run_arbitrage", func(md map[string]interface{}, playerID shared.PlayerID) (interface{}, error) {
		shipSymbol, err := metaString(md, "ship_symbol")
		if err != nil {
			return nil, err
		}
		systemSymbol, err := metaString(md, "system_symbol")
		if err != nil {
			return nil, err
		}
		cmd := &tradingcommands.RunArbitrageCommand{
			ShipSymbol:   shipSymbol,
			SystemSymbol: systemSymbol,
			PlayerID:     playerID,
		}
		if margin, ok := metaFloatOptional(md, "min_margin"); ok {
			cmd.MinMargin = margin
		}
		return cmd, nil
	})
}

// Metadata accessors. Rows written by this process hold native Go values;
// rows read back from the database hold what encoding/json produced.

func metaString(md map[string]interface{}, key string) (string, error) {
	s, ok := metaStringOptional(md, key)
	if !ok || s == "" {
		return "", fmt.Errorf("metadata missing %q", key)
	}
	return s, nil
}

func metaStringOptional(md map[string]interface{}, key string) (string, bool) {
	v, ok := md[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func metaInt(md map[string]interface{}, key string) (int, error) {
	n, ok := metaIntOptional(md, key)
	if !ok {
		return 0, fmt.Errorf("metadata missing %q", key)
	}
	return n, nil
}

func metaIntOptional(md map[string]interface{}, key string) (int, bool) {
	v, ok := md[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func metaFloatOptional(md map[string]interface{}, key string) (float64, bool) {
	v, ok := md[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func metaStrings(md map[string]interface{}, key string) ([]string, error) {
	v, ok := md[key]
	if !ok {
		return nil, fmt.Errorf("metadata missing %q", key)
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("metadata %q holds a non-string element", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("metadata %q is not a list", key)
	}
}
