package rpc

import (
	"context"
	"encoding/json"
	"time"

	ledgerqueries "github.com/orbitalmachines/astrogator/internal/application/ledger/queries"
	playercommands "github.com/orbitalmachines/astrogator/internal/application/player/commands"
	playerqueries "github.com/orbitalmachines/astrogator/internal/application/player/queries"
	scoutingqueries "github.com/orbitalmachines/astrogator/internal/application/scouting/queries"
	shipyardqueries "github.com/orbitalmachines/astrogator/internal/application/shipyard/queries"
	tradingqueries "github.com/orbitalmachines/astrogator/internal/application/trading/queries"
	domainplayer "github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func (s *Server) handleArbitrageOpportunities(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		SystemSymbol  string  `json:"system_symbol"`
		CargoCapacity int     `json:"cargo_capacity"`
		MinMargin     float64 `json:"min_margin"`
		Limit         int     `json:"limit"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &tradingqueries.FindArbitrageOpportunitiesQuery{
		PlayerID:      p.PlayerID,
		AgentSymbol:   p.AgentSymbol,
		SystemSymbol:  p.SystemSymbol,
		CargoCapacity: p.CargoCapacity,
		MinMargin:     p.MinMargin,
		Limit:         p.Limit,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// playerJSON is the wire shape of a player. The token never crosses the
// socket; it stays inside the daemon.
type playerJSON struct {
	ID           int       `json:"id"`
	AgentSymbol  string    `json:"agent_symbol"`
	Headquarters string    `json:"headquarters,omitempty"`
	Credits      int       `json:"credits"`
	Faction      string    `json:"faction,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func playerToJSON(p *domainplayer.Player) playerJSON {
	return playerJSON{
		ID:           p.ID.Value(),
		AgentSymbol:  p.AgentSymbol,
		Headquarters: p.Headquarters,
		Credits:      p.Credits,
		Faction:      p.StartingFaction,
		CreatedAt:    p.CreatedAt,
	}
}

func (s *Server) handleRegisterPlayer(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		AgentSymbol string `json:"agent_symbol"`
		Faction     string `json:"faction"`
		Token       string `json:"token"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &playercommands.RegisterPlayerCommand{
		AgentSymbol: p.AgentSymbol,
		Faction:     p.Faction,
		Token:       p.Token,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"player": playerToJSON(resp.(*playercommands.RegisterPlayerResponse).Player)}, nil
}

func (s *Server) handleListPlayers(ctx context.Context, params json.RawMessage) (interface{}, error) {
	resp, err := s.mediator.Send(ctx, &playerqueries.ListPlayersQuery{})
	if err != nil {
		return nil, err
	}

	players := resp.(*playerqueries.ListPlayersResponse).Players
	out := make([]playerJSON, 0, len(players))
	for _, p := range players {
		out = append(out, playerToJSON(p))
	}
	return map[string]interface{}{"players": out}, nil
}

func (s *Server) handleShipyardListings(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		WaypointSymbol string `json:"waypoint_symbol"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &shipyardqueries.GetShipyardListingsQuery{
		PlayerID:       p.PlayerID,
		AgentSymbol:    p.AgentSymbol,
		WaypointSymbol: p.WaypointSymbol,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleGetMarketData(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		WaypointSymbol string `json:"waypoint_symbol"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &scoutingqueries.GetMarketDataQuery{
		PlayerID:       p.PlayerID,
		AgentSymbol:    p.AgentSymbol,
		WaypointSymbol: p.WaypointSymbol,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// dateRange parses optional RFC3339 bounds shared by the ledger queries.
type dateRange struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

func (d dateRange) parse() (*time.Time, *time.Time, error) {
	parseOne := func(s *string) (*time.Time, error) {
		if s == nil || *s == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, *s)
		if err != nil {
			return nil, shared.WrapDomainError(shared.ErrInvalidParams, "parsing date", err)
		}
		return &t, nil
	}

	start, err := parseOne(d.StartDate)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseOne(d.EndDate)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (s *Server) handleLedgerTransactions(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		dateRange
		Category        *string `json:"category"`
		TransactionType *string `json:"transaction_type"`
		ContainerID     *string `json:"container_id"`
		ShipSymbol      *string `json:"ship_symbol"`
		Limit           int     `json:"limit"`
		Offset          int     `json:"offset"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	start, end, err := p.dateRange.parse()
	if err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &ledgerqueries.GetTransactionsQuery{
		PlayerID:        p.PlayerID,
		AgentSymbol:     p.AgentSymbol,
		StartDate:       start,
		EndDate:         end,
		Category:        p.Category,
		TransactionType: p.TransactionType,
		ContainerID:     p.ContainerID,
		ShipSymbol:      p.ShipSymbol,
		Limit:           p.Limit,
		Offset:          p.Offset,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleLedgerProfitLoss(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		dateRange
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	start, end, err := p.dateRange.parse()
	if err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &ledgerqueries.GetProfitLossQuery{
		PlayerID:    p.PlayerID,
		AgentSymbol: p.AgentSymbol,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleLedgerCashFlow(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		dateRange
		GroupBy string `json:"group_by"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	start, end, err := p.dateRange.parse()
	if err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &ledgerqueries.GetCashFlowQuery{
		PlayerID:    p.PlayerID,
		AgentSymbol: p.AgentSymbol,
		StartDate:   start,
		EndDate:     end,
		GroupBy:     p.GroupBy,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
