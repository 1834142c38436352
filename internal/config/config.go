package config

// Economy holds the settings the chips core consumes: the fallback
// balance for new accounts, snapshot file locations, and the single
// privileged account.
type Economy struct {
	DefaultChips       int64  `env:"DEFAULT_CHIPS" default:"1000"`
	ChipsFile          string `env:"CHIPS_FILE" default:"chips.json"`
	PollFile           string `env:"POLL_FILE" default:"poll.json"`
	SuperuserID        string `env:"SUPERUSER_ID"`
	SuperuserAlwaysWin bool   `env:"SUPERUSER_ALWAYS_WIN" default:"false"`
	AdminToken         string `env:"ADMIN_TOKEN"`
}
