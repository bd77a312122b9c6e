package entity

// Project is one row of the airdrop project tracker sheet.
type Project struct {
	Name     string   `json:"name"`
	Twitter  string   `json:"twitter"`
	Discord  string   `json:"discord"`
	Telegram string   `json:"telegram"`
	Wallet   string   `json:"wallet"`
	Email    string   `json:"email"`
	Github   string   `json:"github"`
	Website  string   `json:"website"`
	Notes    string   `json:"notes"`
	Tags     []string `json:"tags"`
	Daily    string   `json:"daily,omitempty"`
}

// Daily check values stored in the sheet.
const (
	DailyChecked   = "CHECKED"
	DailyUnchecked = "UNCHECKED"
)

// StoreResult is the explicit outcome of a project store mutation.
type StoreResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}
