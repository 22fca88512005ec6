package game

// Key namespace in the KV store.

const (
	allTablesKey = "tables:all"
	soloStateKey = "game:state"
)

func tableKey(id string) string { return "table:" + id }

func stateKey(id string) string { return "table:" + id + ":state" }

func claimsKey(id string) string { return "table:" + id + ":claims" }

func codeKey(code string) string { return "code:" + code }

func ownerTablesKey(email string) string { return "owner:" + email + ":tables" }
