package persistence

import (
	"time"
)

// PlayerModel maps the players table. Credits are a cached display value;
// reads that need an exact balance refresh it from the API first.
type PlayerModel struct {
	ID              int       `gorm:"column:id;primaryKey;autoIncrement"`
	AgentSymbol     string    `gorm:"column:agent_symbol;uniqueIndex;not null"`
	Token           string    `gorm:"column:token;not null"`
	Headquarters    string    `gorm:"column:headquarters"`
	Credits         int       `gorm:"column:credits;default:0"`
	StartingFaction string    `gorm:"column:starting_faction"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
}

func (PlayerModel) TableName() string {
	return "players"
}

// WaypointModel maps the waypoints table. Traits and orbitals are JSON
// arrays stored as text; has_fuel is 0 or 1 so SQLite and Postgres share
// the schema.
type WaypointModel struct {
	WaypointSymbol string    `gorm:"column:waypoint_symbol;primaryKey"`
	SystemSymbol   string    `gorm:"column:system_symbol;index;not null"`
	Type           string    `gorm:"column:type"`
	X              float64   `gorm:"column:x;not null"`
	Y              float64   `gorm:"column:y;not null"`
	Traits         string    `gorm:"column:traits;type:text"`
	HasFuel        int       `gorm:"column:has_fuel;not null;default:0"`
	Orbitals       string    `gorm:"column:orbitals;type:text"`
	SyncedAt       time.Time `gorm:"column:synced_at;not null"`
}

func (WaypointModel) TableName() string {
	return "waypoints"
}

// ContainerModel maps the containers table. Config is the operation's
// JSON metadata; command_type names the factory that rebuilds the
// iteration command at boot.
type ContainerModel struct {
	ID               string       `gorm:"column:id;primaryKey;not null"`
	PlayerID         int          `gorm:"column:player_id;primaryKey;not null"`
	Player           *PlayerModel `gorm:"foreignKey:PlayerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ContainerType    string       `gorm:"column:container_type;not null"`
	CommandType      string       `gorm:"column:command_type;not null"`
	ShipSymbol       string       `gorm:"column:ship_symbol"`
	Status           string       `gorm:"column:status;not null;index"`
	CurrentIteration int          `gorm:"column:current_iteration;default:0"`
	MaxIterations    int          `gorm:"column:max_iterations;default:1"`
	RestartCount     int          `gorm:"column:restart_count;default:0"`
	Config           string       `gorm:"column:config;type:text"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time    `gorm:"column:updated_at;not null"`
	StartedAt        *time.Time   `gorm:"column:started_at"`
	StoppedAt        *time.Time   `gorm:"column:stopped_at"`
	LastError        string       `gorm:"column:last_error;type:text"`
}

func (ContainerModel) TableName() string {
	return "containers"
}

// ContainerLogModel maps the container_logs table.
type ContainerLogModel struct {
	ID          int       `gorm:"column:id;primaryKey;autoIncrement"`
	ContainerID string    `gorm:"column:container_id;not null;index"`
	PlayerID    int       `gorm:"column:player_id;not null"`
	Timestamp   time.Time `gorm:"column:timestamp;not null;index"`
	Level       string    `gorm:"column:level;not null;default:'INFO'"`
	Message     string    `gorm:"column:message;type:text;not null"`
	Metadata    string    `gorm:"column:metadata;type:text"`
}

func (ContainerLogModel) TableName() string {
	return "container_logs"
}

// ShipAssignmentModel maps the ship_assignments table. One row per
// (ship, player); reassignment updates the row in place.
type ShipAssignmentModel struct {
	ShipSymbol    string     `gorm:"column:ship_symbol;primaryKey;not null"`
	PlayerID      int        `gorm:"column:player_id;primaryKey;not null"`
	ContainerID   string     `gorm:"column:container_id;index"`
	Status        string     `gorm:"column:status;not null;index"`
	AssignedAt    *time.Time `gorm:"column:assigned_at"`
	ReleasedAt    *time.Time `gorm:"column:released_at"`
	ReleaseReason *string    `gorm:"column:release_reason"`
}

func (ShipAssignmentModel) TableName() string {
	return "ship_assignments"
}

// SystemGraphModel maps the system_graphs table: one JSON document per
// system. JSONB on Postgres, plain text on SQLite.
type SystemGraphModel struct {
	SystemSymbol string    `gorm:"column:system_symbol;primaryKey"`
	GraphData    string    `gorm:"column:graph_data;type:jsonb;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SystemGraphModel) TableName() string {
	return "system_graphs"
}

// MarketDataModel maps the market_data table: one row per
// (waypoint, good, player). A scout refresh replaces all rows for the
// waypoint in one transaction.
type MarketDataModel struct {
	WaypointSymbol string    `gorm:"column:waypoint_symbol;primaryKey;size:255;not null"`
	GoodSymbol     string    `gorm:"column:good_symbol;primaryKey;size:100;not null"`
	PlayerID       int       `gorm:"column:player_id;primaryKey;not null"`
	Supply         *string   `gorm:"column:supply;size:50"`
	Activity       *string   `gorm:"column:activity;size:50"`
	PurchasePrice  int       `gorm:"column:purchase_price;not null"`
	SellPrice      int       `gorm:"column:sell_price;not null"`
	TradeVolume    int       `gorm:"column:trade_volume;not null"`
	LastUpdated    time.Time `gorm:"column:last_updated;index;not null"`
}

func (MarketDataModel) TableName() string {
	return "market_data"
}

// PriceHistoryModel maps the market_price_history table. Append-only;
// scouts record a row whenever a refreshed price differs from the stored
// snapshot.
type PriceHistoryModel struct {
	ID             int       `gorm:"column:id;primaryKey;autoIncrement"`
	WaypointSymbol string    `gorm:"column:waypoint_symbol;not null;index:idx_price_history_market"`
	GoodSymbol     string    `gorm:"column:good_symbol;not null;index:idx_price_history_market"`
	PlayerID       int       `gorm:"column:player_id;not null"`
	PurchasePrice  int       `gorm:"column:purchase_price;not null"`
	SellPrice      int       `gorm:"column:sell_price;not null"`
	Supply         *string   `gorm:"column:supply;size:50"`
	Activity       *string   `gorm:"column:activity;size:50"`
	TradeVolume    int       `gorm:"column:trade_volume;not null"`
	RecordedAt     time.Time `gorm:"column:recorded_at;not null;index"`
}

func (PriceHistoryModel) TableName() string {
	return "market_price_history"
}

// TransactionModel maps the transactions table. Rows are append-only.
type TransactionModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	PlayerID        int       `gorm:"column:player_id;not null;index"`
	Timestamp       time.Time `gorm:"column:timestamp;not null;index"`
	TransactionType string    `gorm:"column:transaction_type;not null"`
	Category        string    `gorm:"column:category;not null;index"`
	Amount          int       `gorm:"column:amount;not null"`
	Units           int       `gorm:"column:units;default:0"`
	PricePerUnit    int       `gorm:"column:price_per_unit;default:0"`
	GoodSymbol      string    `gorm:"column:good_symbol"`
	WaypointSymbol  string    `gorm:"column:waypoint_symbol"`
	ShipSymbol      string    `gorm:"column:ship_symbol;index"`
	BalanceBefore   int       `gorm:"column:balance_before;not null"`
	BalanceAfter    int       `gorm:"column:balance_after;not null"`
	Description     string    `gorm:"column:description;type:text"`
	ContainerID     string    `gorm:"column:container_id;index"`
	Metadata        string    `gorm:"column:metadata;type:text"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}

// ContractModel maps the contracts table. Deadlines stay RFC3339 strings
// end to end; deliveries are a JSON array.
type ContractModel struct {
	ID                 string `gorm:"column:id;primaryKey;not null"`
	PlayerID           int    `gorm:"column:player_id;primaryKey;not null"`
	FactionSymbol      string `gorm:"column:faction_symbol;not null"`
	Type               string `gorm:"column:type;not null"`
	Accepted           bool   `gorm:"column:accepted;not null"`
	Fulfilled          bool   `gorm:"column:fulfilled;not null"`
	DeadlineToAccept   string `gorm:"column:deadline_to_accept;not null"`
	Deadline           string `gorm:"column:deadline;not null"`
	PaymentOnAccepted  int    `gorm:"column:payment_on_accepted;not null"`
	PaymentOnFulfilled int    `gorm:"column:payment_on_fulfilled;not null"`
	DeliveriesJSON     string `gorm:"column:deliveries_json;type:text;not null"`
	LastUpdated        string `gorm:"column:last_updated;not null"`
}

func (ContractModel) TableName() string {
	return "contracts"
}
