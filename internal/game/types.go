package game

// Wire types for the squares pool. All timestamps are unix milliseconds.

type Visibility string

const (
	VisibilityLink Visibility = "link"
	VisibilityCode Visibility = "code"
)

type BoxStatus string

const (
	BoxAvailable BoxStatus = "available"
	BoxPending   BoxStatus = "pending"
	BoxConfirmed BoxStatus = "confirmed"
)

type LockStatus string

const (
	LockOpen   LockStatus = "open"
	LockLocked LockStatus = "locked"
)

type LockReason string

const (
	LockAuto   LockReason = "auto"
	LockManual LockReason = "manual"
)

// Payouts splits the pot across the four score checkpoints.
type Payouts struct {
	Q1    float64 `json:"q1"`
	Q2    float64 `json:"q2"`
	Q3    float64 `json:"q3"`
	Final float64 `json:"final"`
}

func (p Payouts) Total() float64 {
	return p.Q1 + p.Q2 + p.Q3 + p.Final
}

type Lock struct {
	Status     LockStatus `json:"status"`
	Reason     LockReason `json:"reason,omitempty"`
	LockedAt   int64      `json:"lockedAt,omitempty"`
	UnlockedAt int64      `json:"unlockedAt,omitempty"`
	UnlockedBy string     `json:"unlockedBy,omitempty"`
}

type Table struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	OwnerEmail  string     `json:"ownerEmail"`
	AdminKey    string     `json:"adminKey,omitempty"`
	PricePerBox float64    `json:"pricePerBox"`
	Currency    string     `json:"currency"`
	Payouts     Payouts    `json:"payouts"`
	Rules       string     `json:"rules,omitempty"`
	Visibility  Visibility `json:"visibility"`
	KickoffAt   int64      `json:"kickoffAt"`
	Lock        Lock       `json:"lock"`
	CreatedAt   int64      `json:"createdAt"`
	UpdatedAt   int64      `json:"updatedAt"`
}

// Public returns a copy safe to hand to non-admin callers.
func (t Table) Public() Table {
	t.AdminKey = ""
	return t
}

// Box is one grid cell. Owner is nil exactly when the box is available.
type Box struct {
	ID     int       `json:"id"`
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	Owner  *string   `json:"owner"`
	Status BoxStatus `json:"status"`
}

type GameState struct {
	Boxes           []Box `json:"boxes"`
	RowNumbers      []int `json:"rowNumbers"`
	ColNumbers      []int `json:"colNumbers"`
	NumbersRevealed bool  `json:"numbersRevealed"`
	UpdatedAt       int64 `json:"updatedAt"`
}

type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimConfirmed ClaimStatus = "confirmed"
	ClaimRejected  ClaimStatus = "rejected"
)

// Claim is the audit record of one claim submission; the boxes in BoxIDs
// were claimed atomically together.
type Claim struct {
	ID         string      `json:"id"`
	PlayerName string      `json:"playerName"`
	BoxIDs     []int       `json:"boxIds"`
	Status     ClaimStatus `json:"status"`
	CreatedAt  int64       `json:"createdAt"`
	UpdatedAt  int64       `json:"updatedAt"`
}
