package entity

// Recipient is one validated line of a multisend list.
// Amount keeps the decimal text as entered so that it can be converted to base
// units exactly once the token decimals are known.
type Recipient struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}
